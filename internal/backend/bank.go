package backend

// DefaultBank is the built-in question bank served by Fake, keyed by subject id.
var DefaultBank = map[string][]Question{
	"physics": {
		{
			ID:            "phy-001",
			Text:          "What is the SI unit of force?",
			Options:       []string{"Joule", "Newton", "Watt", "Pascal"},
			CorrectAnswer: "Newton",
			Explanation:   "One newton accelerates one kilogram at one metre per second squared.",
			Hint:          "Named after the author of the laws of motion.",
			Difficulty:    "easy",
		},
		{
			ID:            "phy-002",
			Text:          "A body moving in a circle at constant speed has which acceleration?",
			Options:       []string{"Zero", "Tangential", "Centripetal", "Gravitational"},
			CorrectAnswer: "Centripetal",
			Explanation:   "The velocity keeps changing direction toward the centre.",
			Hint:          "It points toward the centre.",
			Difficulty:    "medium",
		},
		{
			ID:            "phy-003",
			Text:          "Which quantity is conserved in a perfectly elastic collision but not in an inelastic one?",
			Options:       []string{"Momentum", "Kinetic energy", "Mass", "Charge"},
			CorrectAnswer: "Kinetic energy",
			Explanation:   "Momentum is conserved in both; kinetic energy only in elastic collisions.",
			Hint:          "Think about energy lost to heat.",
			Difficulty:    "medium",
		},
	},
	"chemistry": {
		{
			ID:            "chem-001",
			Text:          "What is the pH of a neutral solution at 25°C?",
			Options:       []string{"0", "7", "10", "14"},
			CorrectAnswer: "7",
			Explanation:   "Pure water has equal hydrogen and hydroxide ion concentrations.",
			Hint:          "Halfway on the scale.",
			Difficulty:    "easy",
		},
		{
			ID:            "chem-002",
			Text:          "Which element has the highest electronegativity?",
			Options:       []string{"Oxygen", "Chlorine", "Fluorine", "Nitrogen"},
			CorrectAnswer: "Fluorine",
			Explanation:   "Fluorine tops the Pauling scale at 3.98.",
			Hint:          "Top right of the periodic table, excluding noble gases.",
			Difficulty:    "easy",
		},
		{
			ID:            "chem-003",
			Text:          "What is the hybridisation of carbon in ethyne?",
			Options:       []string{"sp", "sp2", "sp3", "dsp2"},
			CorrectAnswer: "sp",
			Explanation:   "Each carbon forms two sigma bonds and two pi bonds.",
			Hint:          "A triple bond leaves two unhybridised p orbitals.",
			Difficulty:    "hard",
		},
	},
	"mathematics": {
		{
			ID:            "math-001",
			Text:          "What is the derivative of sin(x)?",
			Options:       []string{"cos(x)", "-cos(x)", "-sin(x)", "tan(x)"},
			CorrectAnswer: "cos(x)",
			Explanation:   "d/dx sin(x) = cos(x).",
			Hint:          "The slope of sin at 0 is 1.",
			Difficulty:    "easy",
		},
		{
			ID:            "math-002",
			Text:          "How many ways can 4 distinct books be arranged on a shelf?",
			Options:       []string{"4", "12", "16", "24"},
			CorrectAnswer: "24",
			Explanation:   "4! = 24.",
			Hint:          "Factorial.",
			Difficulty:    "easy",
		},
		{
			ID:            "math-003",
			Text:          "What is the sum of the infinite series 1 + 1/2 + 1/4 + ...?",
			Options:       []string{"1", "1.5", "2", "Diverges"},
			CorrectAnswer: "2",
			Explanation:   "A geometric series with ratio 1/2 sums to 1/(1-1/2).",
			Hint:          "Geometric series.",
			Difficulty:    "medium",
		},
	},
	"biology": {
		{
			ID:            "bio-001",
			Text:          "Which organelle is the site of aerobic respiration?",
			Options:       []string{"Ribosome", "Mitochondrion", "Golgi body", "Lysosome"},
			CorrectAnswer: "Mitochondrion",
			Explanation:   "The Krebs cycle and electron transport chain run in mitochondria.",
			Hint:          "The powerhouse of the cell.",
			Difficulty:    "easy",
		},
		{
			ID:            "bio-002",
			Text:          "Which base is found in RNA but not DNA?",
			Options:       []string{"Adenine", "Thymine", "Uracil", "Cytosine"},
			CorrectAnswer: "Uracil",
			Explanation:   "RNA uses uracil in place of thymine.",
			Hint:          "It pairs with adenine.",
			Difficulty:    "easy",
		},
		{
			ID:            "bio-003",
			Text:          "Which blood cells produce antibodies?",
			Options:       []string{"Erythrocytes", "Platelets", "B lymphocytes", "Neutrophils"},
			CorrectAnswer: "B lymphocytes",
			Explanation:   "Plasma cells derived from B cells secrete antibodies.",
			Hint:          "Named after the bursa of Fabricius.",
			Difficulty:    "medium",
		},
	},
}
