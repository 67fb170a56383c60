// Package domain holds the records exchanged with the frontend and the upstream
// API. It stays free of HTTP and rendering concerns.
package domain

// ReportRequest is the input of one report render. Renderers never mutate it.
type ReportRequest struct {
	SubjectName           string     `json:"nome"`
	SubjectAge            int        `json:"idade"`
	PersonalHistory       string     `json:"historicoPessoal"`
	Relatives             []Relative `json:"familiares"`
	MeetsReferralCriteria bool       `json:"precisaPesquisaOncogenetica"`
}

// Relative is one affected family member. Relation is free text and is
// compared verbatim when relatives are grouped.
type Relative struct {
	Relation       string `json:"grau"`
	CancerType     string `json:"tipoCancer"`
	AgeAtDiagnosis int    `json:"idadeDiagnostico"`
}
