package tracker

import (
	"encoding/json"
	"log"
	"time"
)

// logEvent writes a structured JSON log line for machine consumption.
func logEvent(instance, eventType string, data map[string]interface{}) {
	if data == nil {
		data = make(map[string]interface{})
	}
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "tracker"
	data["event_type"] = eventType
	data["instance"] = instance

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Tracker] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
