package authsync

import "time"

// OnboardingStatus is the backend's view of how far the user got through
// account setup.
type OnboardingStatus string

const (
	OnboardingNotStarted OnboardingStatus = "not_started"
	OnboardingCompleted  OnboardingStatus = "completed"
)

// LinkedAccount is the nested reservation-network profile attached to a
// session record, present only once the user has linked an external
// account.
type LinkedAccount struct {
	Email           string `json:"email,omitempty"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	PaymentMethodID string `json:"payment_method_id,omitempty"`
}

// SessionRecord is the backend-owned session state returned by the /me
// endpoint. The client treats it as read-mostly: it is created after a
// successful fetch, refreshed on demand, and destroyed together with the
// identity on sign-out.
type SessionRecord struct {
	OnboardingStatus OnboardingStatus `json:"onboarding_status"`
	HasPaymentMethod bool             `json:"has_payment_method"`
	Resy             *LinkedAccount   `json:"resy,omitempty"`
	FetchedAt        time.Time        `json:"fetched_at,omitempty"`
}

// IsOnboarded reports whether the user completed onboarding.
func (s *SessionRecord) IsOnboarded() bool {
	return s != nil && s.OnboardingStatus == OnboardingCompleted
}

// HasLinkedAccount reports whether an external reservation account is
// attached.
func (s *SessionRecord) HasLinkedAccount() bool {
	return s != nil && s.Resy != nil
}

// Clone returns a deep copy so snapshot readers never alias store state.
func (s *SessionRecord) Clone() *SessionRecord {
	if s == nil {
		return nil
	}
	out := *s
	if s.Resy != nil {
		resy := *s.Resy
		out.Resy = &resy
	}
	return &out
}

// ParseOnboardingStatus normalizes the wire value; unknown values map to
// OnboardingNotStarted so an additive backend change never strands the
// client.
func ParseOnboardingStatus(raw string) OnboardingStatus {
	switch OnboardingStatus(raw) {
	case OnboardingCompleted:
		return OnboardingCompleted
	default:
		return OnboardingNotStarted
	}
}
