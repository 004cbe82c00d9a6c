package diagnosis

import (
	"strconv"
	"strings"
)

// ExplainTarget pairs a model-name substring with the explainability model it maps to.
type ExplainTarget struct {
	Match  string
	Target string
}

// DefaultExplainTarget is used for any model name no entry matches.
const DefaultExplainTarget = "DunnBC22/vit-base-patch16-224-in21k_covid_19_ct_scans"

// explainTargets is checked in order; the first substring match wins.
var explainTargets = []ExplainTarget{
	{Match: "skin", Target: "Anwarkh1/Skin_Cancer-Image_Classification"},
	{Match: "breast", Target: "Falah/vit-base-breast-cancer"},
	{Match: "brain", Target: "DunnBC22/vit-base-patch16-224-in21k_brain_tumor_diagnosis"},
	{Match: "pneu", Target: "xyuan/vit-xray-pneumonia-classification"},
}

// ExplainTargets returns a copy of the lookup table.
func ExplainTargets() []ExplainTarget {
	return append([]ExplainTarget(nil), explainTargets...)
}

// ExplainTargetFor maps a model name to its explainability target.
func ExplainTargetFor(modelName string) string {
	name := strings.ToLower(modelName)
	for _, t := range explainTargets {
		if strings.Contains(name, t.Match) {
			return t.Target
		}
	}
	return DefaultExplainTarget
}

// ExplainArtifactName is the storage name of the explanation for slot index of a job.
func ExplainArtifactName(index int, handle, inputArtifact string) string {
	return "explain_" + strconv.Itoa(index) + "_" + handle + "_" + inputArtifact
}
