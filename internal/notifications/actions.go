package notifications

import (
	"fmt"

	"github.com/charlesng35/mlnotify/internal/models"
)

// Action is the call-to-action attached to a generated notification.
type Action struct {
	ModelName string
	Text      string
	URL       string
}

type actionKey struct {
	typ models.NotificationType
	tag models.TemplateTag
}

type actionRule struct {
	modelPattern string
	modelVar     string
	text         string
	url          string
}

// training and prediction rules apply to every tag.
var typeActions = map[models.NotificationType]actionRule{
	models.TypeTraining:   {modelPattern: "NeuralNet_v%v", modelVar: VarNeuralNetVersion, text: "View Progress", url: "/models/training/"},
	models.TypePrediction: {modelPattern: "Predictor_%v", modelVar: VarPredictorVersion, text: "View Prediction", url: "/predictions/"},
}

var taggedActions = map[actionKey]actionRule{
	{models.TypeSuccess, models.TagModel}:      {modelPattern: "Model_v%v", modelVar: VarModelVersion, text: "View Model", url: "/models/"},
	{models.TypeSuccess, models.TagDeployment}: {modelPattern: "Production_Model_v%v", modelVar: VarProductionVersion, text: "Deploy Now", url: "/deploy/"},
	{models.TypeInfo, models.TagData}:          {text: "View Results", url: "/data/processing/"},
	{models.TypeInfo, models.TagDataset}:       {text: "View Dataset", url: "/datasets/"},
	{models.TypeWarning, models.TagSystem}:     {text: "View Metrics", url: "/system/metrics/"},
	{models.TypeWarning, models.TagAnomaly}:    {text: "Investigate", url: "/anomalies/"},
}

// ResolveAction looks up the action for a template's type and tag. Unknown
// combinations yield the zero Action.
func ResolveAction(typ models.NotificationType, tag models.TemplateTag, values map[string]any) Action {
	rule, ok := typeActions[typ]
	if !ok {
		rule, ok = taggedActions[actionKey{typ: typ, tag: tag}]
	}
	if !ok {
		return Action{}
	}

	action := Action{Text: rule.text, URL: rule.url}
	if rule.modelPattern != "" {
		if value, found := values[rule.modelVar]; found {
			action.ModelName = fmt.Sprintf(rule.modelPattern, formatValue(value))
		}
	}
	return action
}
