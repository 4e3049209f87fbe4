package model

type RegisterDevice struct {
	Name         string   `json:"name"`
	Identifiers  []string `json:"identifiers"`
	Model        string   `json:"model"`
	Manufacturer string   `json:"manufacturer"`
}

// RegisterMessage is the Home Assistant discovery payload.
type RegisterMessage struct {
	Tilda             string         `json:"~"`
	Name              string         `json:"name"`
	ID                string         `json:"unique_id"`
	StateTopic        string         `json:"state_topic"`
	ValueTemplate     string         `json:"value_template"`
	UnitOfMeasurement string         `json:"unit_of_measurement"`
	JSONAttributes    string         `json:"json_attributes_topic"`
	Device            RegisterDevice `json:"device"`
}

// CheapestHourState is published as the state of the cheapest hour sensor.
type CheapestHourState struct {
	StartsAt string `json:"starts_at"`
	Total    string `json:"total"`
	Currency string `json:"currency"`
	IsNow    bool   `json:"is_now"`
}
