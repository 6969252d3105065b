package features

import (
	"sort"
	"strings"
)

// Pole is a competence family that module names are grouped into.
type Pole string

const (
	PoleMathematics Pole = "Mathematiques"
	PolePhysics     Pole = "Physique"
	PoleElectrical  Pole = "Electrique"
	PoleElectronics Pole = "Electronique"
	PoleMechanics   Pole = "Mecanique"
	PoleControl     Pole = "Automatique"
	PoleComputing   Pole = "Informatique"
	PoleLanguages   Pole = "Langues_Communication"
	PoleManagement  Pole = "Gestion_Economie"
	PoleOther       Pole = "Autres"
)

// poleRules are evaluated in order; the first matching keyword wins. Keywords cover
// the Arabic, French and English module titles found in the exports.
var poleRules = []struct {
	pole     Pole
	keywords []string
}{
	{PoleMathematics, []string{"رياضيات", "math", "جبر", "algebra", "analyse", "probabilité"}},
	{PolePhysics, []string{"فيزياء", "physics", "physique", "mécanique", "thermodynamique"}},
	{PoleElectrical, []string{"كهربائية", "electrical", "électrique", "دارات", "circuits"}},
	{PoleElectronics, []string{"الكترون", "electron", "électronique"}},
	{PoleMechanics, []string{"ميكانيك", "mechanical", "mécanique", "rdm"}},
	{PoleControl, []string{"تحكم", "control", "automatique", "régulation"}},
	{PoleComputing, []string{"برمج", "program", "حاسوب", "computer", "informatique", "algorithme"}},
	{PoleLanguages, []string{"انكليزية", "english", "لغة", "français", "communication", "tec"}},
	{PoleManagement, []string{"اقتصاد", "économie", "gestion", "management", "comptabilité"}},
}

// ClassifyModule maps a module name to its competence pole.
func ClassifyModule(module string) Pole {
	lower := strings.ToLower(module)
	for _, rule := range poleRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.pole
			}
		}
	}
	return PoleOther
}

// AllPoles lists every pole in lexical order, which is the order force_ columns
// are laid out in.
func AllPoles() []Pole {
	out := make([]Pole, 0, len(poleRules)+1)
	for _, r := range poleRules {
		out = append(out, r.pole)
	}
	out = append(out, PoleOther)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ForceColumn is the feature column holding a student's strength in a pole.
func ForceColumn(p Pole) string { return ForcePrefix + string(p) }

// PoleOfColumn returns the pole encoded in a force_ column name.
func PoleOfColumn(column string) (Pole, bool) {
	if !strings.HasPrefix(column, ForcePrefix) {
		return "", false
	}
	return Pole(strings.TrimPrefix(column, ForcePrefix)), true
}
