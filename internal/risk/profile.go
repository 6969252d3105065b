package risk

import (
	"math"
	"strings"
)

// Profile is a learner profile name.
type Profile string

const (
	ProfileExcellence  Profile = "Excellence"
	ProfileRegular     Profile = "Régulier"
	ProfileProgressing Profile = "En_Progression"
	ProfileStruggling  Profile = "En_Difficulté"
	ProfileAtRisk      Profile = "À_Risque"
	ProfileUnknown     Profile = "Inconnu"
)

var Profiles = []Profile{ProfileExcellence, ProfileRegular, ProfileProgressing, ProfileStruggling, ProfileAtRisk}

// ParseProfile maps a bundle profile name to a Profile. Names outside the five
// known profiles become ProfileUnknown.
func ParseProfile(name string) Profile {
	name = strings.TrimSpace(name)
	for _, p := range Profiles {
		if string(p) == name {
			return p
		}
	}
	return ProfileUnknown
}

// ProfileForGrade derives a profile from the mean grade out of 20.
func ProfileForGrade(mean float64) Profile {
	switch {
	case mean >= 14:
		return ProfileExcellence
	case mean >= 12:
		return ProfileRegular
	case mean >= 10:
		return ProfileProgressing
	case mean >= 7:
		return ProfileStruggling
	default:
		return ProfileAtRisk
	}
}

// Strategy is the support plan attached to a profile.
type Strategy struct {
	Title   string   `json:"title"`
	Actions []string `json:"actions"`
}

var strategies = map[Profile]Strategy{
	ProfileAtRisk: {"INTERVENTION URGENTE", []string{
		"Convocation par le conseiller pédagogique",
		"Tutorat individuel (2h/semaine minimum)",
		"Contrat pédagogique personnalisé",
		"Suivi psychologique si nécessaire",
		"Orientation vers les permanences de soutien",
	}},
	ProfileStruggling: {"SOUTIEN RENFORCÉ", []string{
		"Inscription obligatoire aux TD de soutien",
		"Groupes de travail dirigés",
		"Exercices de rattrapage hebdomadaires",
		"Suivi bi-hebdomadaire par le tuteur",
		"Accès prioritaire aux ressources numériques",
	}},
	ProfileProgressing: {"ACCOMPAGNEMENT MODÉRÉ", []string{
		"Sessions de révision optionnelles",
		"Groupes d'entraide entre étudiants",
		"Auto-évaluation régulière",
		"Permanences des enseignants",
	}},
	ProfileRegular: {"CONSOLIDATION", []string{
		"Ressources en ligne complémentaires",
		"Préparation aux examens",
		"Encouragement à l'excellence",
	}},
	ProfileExcellence: {"ENCOURAGEMENT", []string{
		"Programmes d'excellence",
		"Tutorat par les pairs (comme tuteur)",
		"Projets avancés",
		"Préparation concours et bourses",
	}},
}

// StrategyFor returns the plan for p; unknown profiles get an empty plan.
func StrategyFor(p Profile) Strategy {
	s, ok := strategies[p]
	if !ok {
		return Strategy{Actions: []string{}}
	}
	return Strategy{Title: s.Title, Actions: append([]string(nil), s.Actions...)}
}

// Mention is the grade classification of a mark out of 20.
type Mention string

const (
	MentionVeryGood   Mention = "Très_Bien"
	MentionGood       Mention = "Bien"
	MentionFairlyGood Mention = "Assez_Bien"
	MentionPass       Mention = "Passable"
	MentionFail       Mention = "Non_Validé"
	MentionUngraded   Mention = "Non_Évalué"
)

// MentionFor classifies a grade; zero or NaN is treated as not graded.
func MentionFor(grade float64) Mention {
	switch {
	case math.IsNaN(grade) || grade == 0:
		return MentionUngraded
	case grade >= 16:
		return MentionVeryGood
	case grade >= 14:
		return MentionGood
	case grade >= 12:
		return MentionFairlyGood
	case grade >= 10:
		return MentionPass
	default:
		return MentionFail
	}
}

// EstimatedGrade projects a grade in a module from the student's mean and the
// module failure rate, within [0, 20].
func EstimatedGrade(mean, moduleRate float64) float64 {
	g := mean * (1 - moduleRate*0.3)
	return math.Max(0, math.Min(20, g))
}

const (
	studentsPerTutor    = 15
	hoursPerTutor       = 2
	monthlyCostPerTutor = 200
)

// TutorPlan sizes tutoring for a group of students needing support.
type TutorPlan struct {
	Students      int `json:"students"`
	Tutors        int `json:"tutors"`
	HoursPerWeek  int `json:"hours_per_week"`
	MonthlyBudget int `json:"monthly_budget"`
}

func PlanTutoring(students int) TutorPlan {
	if students < 0 {
		students = 0
	}
	tutors := students / studentsPerTutor
	if tutors < 1 {
		tutors = 1
	}
	return TutorPlan{
		Students:      students,
		Tutors:        tutors,
		HoursPerWeek:  hoursPerTutor * tutors,
		MonthlyBudget: monthlyCostPerTutor * tutors,
	}
}
