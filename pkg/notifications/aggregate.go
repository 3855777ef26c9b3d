package notifications

// StateNone is the aggregate of a recipient without any delivery log.
const StateNone DeliveryStatus = "none"

var progress = map[DeliveryStatus]int{
	StatusFailed:    1,
	StatusPending:   2,
	StatusSent:      3,
	StatusDelivered: 4,
}

// Aggregate folds a recipient's per-channel logs into one state: the most
// advanced status among them, so failed only when every channel failed.
// Unattributed logs are ignored.
func Aggregate(logs []DeliveryLog) DeliveryStatus {
	state := StateNone
	for _, l := range logs {
		if l.Unattributed() {
			continue
		}
		if progress[l.Status] > progress[state] {
			state = l.Status
		}
	}
	return state
}

// RecipientState is the derived delivery view of one recipient.
type RecipientState struct {
	RecipientID string                     `json:"recipient_id"`
	UserID      string                     `json:"user_id"`
	State       DeliveryStatus             `json:"state"`
	Channels    map[Channel]DeliveryStatus `json:"channels"`
	Read        bool                       `json:"read"`
}

// Summary is the derived delivery view of a notification. Unattributed logs
// are listed on their own and do not count toward any recipient.
type Summary struct {
	NotificationID string                 `json:"notification_id"`
	Recipients     []RecipientState       `json:"recipients"`
	Unattributed   []DeliveryLog          `json:"unattributed,omitempty"`
	Counts         map[DeliveryStatus]int `json:"counts"`
}

// Summarize builds a Summary. Counts tally recipient aggregates, including
// StateNone.
func Summarize(notificationID string, recipients []Recipient, logs []DeliveryLog) Summary {
	byRecipient := make(map[string][]DeliveryLog, len(recipients))
	s := Summary{
		NotificationID: notificationID,
		Recipients:     make([]RecipientState, 0, len(recipients)),
		Counts:         make(map[DeliveryStatus]int),
	}

	for _, l := range logs {
		if l.Unattributed() {
			s.Unattributed = append(s.Unattributed, l)
			continue
		}
		byRecipient[*l.RecipientID] = append(byRecipient[*l.RecipientID], l)
	}

	for _, r := range recipients {
		own := byRecipient[r.ID]
		rs := RecipientState{
			RecipientID: r.ID,
			UserID:      r.UserID,
			State:       Aggregate(own),
			Channels:    make(map[Channel]DeliveryStatus, len(own)),
			Read:        r.Read,
		}
		for _, l := range own {
			rs.Channels[l.Channel] = l.Status
		}
		s.Recipients = append(s.Recipients, rs)
		s.Counts[rs.State]++
	}

	return s
}
