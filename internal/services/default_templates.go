package services

import "github.com/charlesng35/mlnotify/internal/models"

// DefaultTemplates returns the built-in ML platform templates installed by SeedDefaults.
func DefaultTemplates() []models.NotificationTemplate {
	return []models.NotificationTemplate{
		{
			Name:            "ai_model_training_update",
			TitleTemplate:   "AI Model Training Update",
			MessageTemplate: "Your neural network model has completed another training epoch. Current accuracy: {accuracy}%",
			Type:            models.TypeTraining,
			Priority:        models.PriorityMedium,
			Tag:             models.TagModel,
			IsActive:        true,
		},
		{
			Name:            "data_processing_complete",
			TitleTemplate:   "Data Processing Complete",
			MessageTemplate: "Batch processing completed successfully. Processed {records} records in {duration} minutes.",
			Type:            models.TypeInfo,
			Priority:        models.PriorityLow,
			Tag:             models.TagData,
			IsActive:        true,
		},
		{
			Name:            "system_performance_alert",
			TitleTemplate:   "System Performance Alert",
			MessageTemplate: "CPU usage is at {cpu_usage}%. Consider scaling resources.",
			Type:            models.TypeWarning,
			Priority:        models.PriorityMedium,
			Tag:             models.TagSystem,
			IsActive:        true,
		},
		{
			Name:            "new_prediction_available",
			TitleTemplate:   "New Prediction Available",
			MessageTemplate: "Your prediction request has been completed. Confidence score: {confidence}",
			Type:            models.TypePrediction,
			Priority:        models.PriorityMedium,
			IsActive:        true,
		},
		{
			Name:            "model_performance_update",
			TitleTemplate:   "Model Performance Update",
			MessageTemplate: "Model accuracy has improved by {improvement}% since last check.",
			Type:            models.TypeSuccess,
			Priority:        models.PriorityHigh,
			Tag:             models.TagModel,
			IsActive:        true,
		},
		{
			Name:            "dataset_upload_complete",
			TitleTemplate:   "Dataset Upload Complete",
			MessageTemplate: "New dataset has been uploaded and validated. Size: {file_size}MB with {record_count} records.",
			Type:            models.TypeInfo,
			Priority:        models.PriorityLow,
			Tag:             models.TagDataset,
			IsActive:        true,
		},
		{
			Name:            "model_deployment_ready",
			TitleTemplate:   "Model Deployment Ready",
			MessageTemplate: "Your trained model is ready for deployment. Performance metrics exceed requirements.",
			Type:            models.TypeSuccess,
			Priority:        models.PriorityHigh,
			Tag:             models.TagDeployment,
			IsActive:        true,
		},
		{
			Name:            "anomaly_detected",
			TitleTemplate:   "Anomaly Detected",
			MessageTemplate: "Unusual pattern detected in data stream. Confidence: {anomaly_confidence}",
			Type:            models.TypeWarning,
			Priority:        models.PriorityHigh,
			Tag:             models.TagAnomaly,
			IsActive:        true,
		},
		{
			Name:            "model_accuracy_improvement",
			TitleTemplate:   "Model Accuracy Improved",
			MessageTemplate: "NeuralNet_v{neural_net_version} accuracy increased by {improvement}% after retraining.",
			Type:            models.TypeSuccess,
			Priority:        models.PriorityMedium,
			Tag:             models.TagModel,
			IsActive:        true,
		},
		{
			Name:            "data_quality_alert",
			TitleTemplate:   "Data Quality Alert",
			MessageTemplate: "Data quality score dropped to {cpu_usage}%. Review data preprocessing pipeline.",
			Type:            models.TypeWarning,
			Priority:        models.PriorityHigh,
			Tag:             models.TagData,
			IsActive:        true,
		},
		{
			Name:            "model_retraining_complete",
			TitleTemplate:   "Model Retraining Complete",
			MessageTemplate: "Model_v{model_version} retraining completed with {accuracy}% accuracy on {records} samples.",
			Type:            models.TypeTraining,
			Priority:        models.PriorityMedium,
			Tag:             models.TagModel,
			IsActive:        true,
		},
		{
			Name:            "prediction_batch_complete",
			TitleTemplate:   "Prediction Batch Complete",
			MessageTemplate: "Batch prediction completed for {records} samples. Average confidence: {confidence}.",
			Type:            models.TypePrediction,
			Priority:        models.PriorityLow,
			IsActive:        true,
		},
	}
}
