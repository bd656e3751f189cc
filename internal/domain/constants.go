package domain

// Project status labels
const (
	StatusDataPending  = "Data Pending"
	StatusUnderEmbargo = "Under Embargo"
)

// Job names used in logs, notifications and the run ledger
const (
	JobStatusPromoter = "status-promoter"
	JobSnapshotter    = "snapshotter"
)

// DefaultExcludedCreators are the service and staff accounts whose uploads
// (data sharing plans and other administrative files) never count toward a
// project's first contribution.
var DefaultExcludedCreators = []string{"3421893", "3459953", "3434950", "3342573"}
