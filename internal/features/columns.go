package features

// Feature column names. They are part of the trained artifact's contract and are
// kept exactly as the model was fit with them.
const (
	ColPractical          = "Practical"
	ColTheoretical        = "Theoretical"
	ColTotal              = "Total"
	ColGrade20            = "Note_sur_20"
	ColSemester           = "Semester"
	ColYear               = "Annee"
	ColPeerMeanTotal      = "peer_group_avg_total"
	ColPeerMeanGrade      = "peer_group_avg_note20"
	ColPeerMeanPractical  = "peer_group_avg_practical"
	ColPeerSupportRate    = "peer_group_support_rate"
	ColDeviationTotal     = "deviation_from_peer"
	ColDeviationGrade     = "deviation_note20"
	ColStudentMeanTotal   = "student_avg_total"
	ColStudentStdTotal    = "student_std_total"
	ColStudentMinTotal    = "student_min_total"
	ColStudentMaxTotal    = "student_max_total"
	ColStudentModuleCount = "student_module_count"
	ColStudentMeanGrade   = "student_avg_note20"
	ColStudentMinGrade    = "student_min_note20"
	ColStudentMeanPract   = "student_avg_practical"
	ColStudentMeanTheory  = "student_avg_theoretical"
	ColStudentSupportRate = "student_support_rate"
	ColModuleMeanTotal    = "module_avg_total"
	ColModuleMeanGrade    = "module_avg_note20"
	ColModuleFailureRate  = "module_taux_echec"
	ColModuleEnrollment   = "module_effectif"
	ColComboFailureRate   = "combo_taux_echec"
	ColComboHighRisk      = "combo_haut_risque"
	ColSemesterLoad       = "charge_semestre"
	ColAbsenteeRate       = "taux_absenteisme"
	ColPracticalRatio     = "ratio_pratique"
	ColTheoryPracticeGap  = "ecart_theorie_pratique"
	ColSupportCount       = "modules_rattrapage"
	ColThresholdDistance  = "distance_seuil"
	ColProgramEncoded     = "Filiere_encoded"
	ColPoleEncoded        = "pole_encoded"

	ForcePrefix = "force_"
)

var baseColumns = []string{
	ColPractical, ColTheoretical, ColTotal, ColGrade20, ColSemester, ColYear,
	ColPeerMeanTotal, ColPeerMeanGrade, ColPeerMeanPractical, ColPeerSupportRate,
	ColDeviationTotal, ColDeviationGrade, ColStudentMeanTotal, ColStudentStdTotal,
	ColStudentMinTotal, ColStudentMaxTotal, ColStudentModuleCount,
	ColStudentMeanGrade, ColStudentMinGrade,
	ColStudentMeanPract, ColStudentMeanTheory, ColStudentSupportRate,
	ColModuleMeanTotal, ColModuleMeanGrade, ColModuleFailureRate, ColModuleEnrollment,
	ColComboFailureRate, ColComboHighRisk, ColSemesterLoad,
	ColAbsenteeRate, ColPracticalRatio, ColTheoryPracticeGap,
	ColSupportCount, ColThresholdDistance,
}

// DefaultColumns is the layout used when no artifact supplies one: base columns,
// one force_ column per pole, then the two encoded categoricals.
func DefaultColumns() []string {
	out := make([]string, 0, len(baseColumns)+len(poleRules)+3)
	out = append(out, baseColumns...)
	for _, p := range AllPoles() {
		out = append(out, ForceColumn(p))
	}
	return append(out, ColProgramEncoded, ColPoleEncoded)
}
