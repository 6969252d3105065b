package risk

// Category is an ordered risk band.
type Category string

const (
	CategoryMinimal  Category = "MINIMAL"
	CategoryLow      Category = "FAIBLE"
	CategoryModerate Category = "MODÉRÉ"
	CategoryHigh     Category = "ÉLEVÉ"
	CategoryCritical Category = "CRITIQUE"
)

// Categories lists every band from lowest to highest risk.
var Categories = []Category{CategoryMinimal, CategoryLow, CategoryModerate, CategoryHigh, CategoryCritical}

// Rank orders categories: MINIMAL is 0, CRITIQUE is 4. Unknown categories rank -1.
func (c Category) Rank() int {
	for i, k := range Categories {
		if k == c {
			return i
		}
	}
	return -1
}

var recommendations = map[Category][]string{
	CategoryCritical: {
		"Tutorat individuel URGENT",
		"Convocation conseiller pédagogique",
		"Séances de rattrapage obligatoires",
		"Intégration groupe de soutien",
	},
	CategoryHigh: {
		"Inscription TD de soutien",
		"Suivi hebdomadaire recommandé",
		"Révision des fondamentaux",
		"Objectifs personnalisés",
	},
	CategoryModerate: {
		"Sessions de révision recommandées",
		"Ressources en ligne disponibles",
		"Travail en groupe conseillé",
	},
	CategoryLow: {
		"Ressources complémentaires disponibles",
		"Maintenir le rythme actuel",
	},
	CategoryMinimal: {
		"Excellent travail !",
		"Ressources avancées disponibles",
		"Possibilité de tutorat pair",
	},
}

// Categorize maps a probability to its band and the band's ordered actions.
func Categorize(p float64) (Category, []string) {
	var c Category
	switch {
	case p >= 0.8:
		c = CategoryCritical
	case p >= 0.6:
		c = CategoryHigh
	case p >= 0.4:
		c = CategoryModerate
	case p >= 0.2:
		c = CategoryLow
	default:
		c = CategoryMinimal
	}
	return c, Recommendations(c)
}

// Recommendations returns a copy of the actions for c.
func Recommendations(c Category) []string {
	return append([]string(nil), recommendations[c]...)
}
