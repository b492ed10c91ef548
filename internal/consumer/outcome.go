package consumer

// Outcome is how processing of a single stream entry ended.
type Outcome string

const (
	OutcomeStored              Outcome = "stored"
	OutcomeMalformed           Outcome = "malformed"
	OutcomeUnknownSubscription Outcome = "unknown_subscription"
	OutcomePersistFailed       Outcome = "persist_failed"
	OutcomeFailed              Outcome = "failed"
)

// Acknowledge reports whether the entry should be XACKed. Entries that can
// never succeed are acked so they do not pin the pending list; entries that
// failed on infrastructure stay pending for redelivery.
func (o Outcome) Acknowledge() bool {
	switch o {
	case OutcomeStored, OutcomeMalformed, OutcomeUnknownSubscription:
		return true
	}
	return false
}
