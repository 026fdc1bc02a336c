package tracker

import "fmt"

// Activity holds the most recent human-readable notification. Every write replaces
// the previous message; no history is kept.
type Activity struct {
	message string
}

// Set overwrites the current message.
func (a *Activity) Set(message string) {
	a.message = message
}

// Message returns the current message, or "" if nothing happened yet.
func (a *Activity) Message() string {
	return a.message
}

// Reset clears the message.
func (a *Activity) Reset() {
	a.message = ""
}

// ActivityPayload is the broadcast payload of an activity message.
type ActivityPayload struct {
	Message string `json:"message"`
}

// JoinAnnouncement is broadcast shortly after a view finishes channel setup.
const JoinAnnouncement = "A user joined the instruments page!"

func addedMessage(name string) string {
	return fmt.Sprintf("New instrument \"%s\" was added!", name)
}

func updatedMessage(name string) string {
	return fmt.Sprintf("Instrument \"%s\" was updated!", name)
}

func deletedMessage() string {
	return "An instrument was deleted!"
}

func sampleAddedMessage(name string) string {
	return fmt.Sprintf("Someone added a %s!", name)
}
