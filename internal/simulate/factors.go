package simulate

// factor pairs a multiplicative base with the standard deviation of the
// relative noise it contributes.
type factor struct {
	base     float64
	variance float64
}

var yearFactors = map[int]factor{
	2025: {1.02, 0.05},
	2026: {1.01, 0.08},
	2027: {0.98, 0.06},
	2028: {1.05, 0.10},
	2029: {0.95, 0.07},
	2030: {1.03, 0.09},
}

// neutralYear applies to target years outside the scenario table.
var neutralYear = factor{1.0, 0.05}

var departmentFactors = map[string]factor{
	"Lima":          {1.08, 0.12},
	"Callao":        {1.06, 0.10},
	"Loreto":        {1.04, 0.15},
	"Madre de Dios": {1.07, 0.18},
	"Ucayali":       {1.05, 0.14},
	"Arequipa":      {1.03, 0.08},
	"La Libertad":   {1.04, 0.09},
	"Piura":         {1.02, 0.11},
}

var defaultDepartment = factor{1.0, 0.08}

var sexFactors = map[string]factor{
	"Masculino": {1.02, 0.08},
	"Femenino":  {0.98, 0.12},
}

// outbreakDepartments may see a late outbreak multiplier.
var outbreakDepartments = map[string]bool{
	"Lima":   true,
	"Callao": true,
	"Loreto": true,
}

const (
	outbreakFromYear    = 2028
	outbreakProbability = 0.3
	outbreakMin         = 1.2
	outbreakMax         = 1.8
	alertStdDevFactor   = 1.5
)

func yearFactor(year int) factor {
	if f, ok := yearFactors[year]; ok {
		return f
	}
	return neutralYear
}

func departmentFactor(dept string) factor {
	if f, ok := departmentFactors[dept]; ok {
		return f
	}
	return defaultDepartment
}

// Departments lists Peru's 24 departments plus the Constitutional Province
// of Callao, in the spelling the ministry datasets use.
var Departments = []string{
	"Amazonas", "Ancash", "Apurimac", "Arequipa", "Ayacucho", "Cajamarca",
	"Callao", "Cusco", "Huancavelica", "Huanuco", "Ica", "Junin",
	"La Libertad", "Lambayeque", "Lima", "Loreto", "Madre de Dios", "Moquegua",
	"Pasco", "Piura", "Puno", "San Martin", "Tacna", "Tumbes", "Ucayali",
}
