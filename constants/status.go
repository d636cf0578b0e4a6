package constants

// DocumentStatus is the lifecycle of an uploaded document.
type DocumentStatus string

// Stable values (store these exact strings in DB).
const (
	DocumentPending    DocumentStatus = "pending"
	DocumentProcessing DocumentStatus = "processing"
	DocumentCompleted  DocumentStatus = "completed" // terminal
	DocumentFailed     DocumentStatus = "failed"    // terminal
)

// ProposalStatus is the state of a pricebook update proposal.
// PENDING -> {APPROVED, REJECTED}; both targets are terminal.
type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalApproved ProposalStatus = "approved"
	ProposalRejected ProposalStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed.
func (s ProposalStatus) IsTerminal() bool {
	return s == ProposalApproved || s == ProposalRejected
}

// UpdateType says what an approved proposal does to the pricebook.
type UpdateType string

const (
	UpdatePrice   UpdateType = "price_update"
	UpdateNewItem UpdateType = "new_item"
)

// Decision is the human verdict on a pending proposal.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// MatchMethod records how an extracted position was linked to a catalog item.
type MatchMethod string

const (
	MatchExact MatchMethod = "exact"
	MatchFuzzy MatchMethod = "fuzzy"
	MatchNone  MatchMethod = "none"
)

// MarketTrend compares a proposed price against the market average.
type MarketTrend string

const (
	AboveMarket MarketTrend = "above_market"
	AtMarket    MarketTrend = "at_market"
	BelowMarket MarketTrend = "below_market"
)

// Outcome is the user-visible result of one uploaded file.
type Outcome string

const (
	OutcomeOK               Outcome = "validated-ok"
	OutcomeValidationFailed Outcome = "validation-failed"
	OutcomeExtractionFailed Outcome = "extraction-failed"
	OutcomeAnalysisFailed   Outcome = "analysis-failed"
)
