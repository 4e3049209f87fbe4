package model

// NotificationRequest is the content of one push notification.
type NotificationRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// NotificationResult is what the API reports back for a push notification.
type NotificationResult struct {
	Successful              bool `json:"successful"`
	PushedToNumberOfDevices int  `json:"pushedToNumberOfDevices"`
}
