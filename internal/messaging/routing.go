package messaging

import "strings"

// TopicName derives the broker destination from an event type name, so every
// producer and consumer computes the same topic without shared configuration.
// A trailing "Event" or "Command" suffix is stripped and the remainder is
// kebab-cased: "OrderCreatedEvent" -> "order-created".
func TopicName(messageType string) string {
	name := strings.TrimSuffix(messageType, "Event")
	if name == messageType {
		name = strings.TrimSuffix(messageType, "Command")
	}
	if name == "" {
		name = messageType
	}

	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
