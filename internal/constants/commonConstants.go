package constants

type (
	APIStatus   string
	CachePrefix string
)

const (
	APIStatusOk    APIStatus = "ok"
	APIStatusError APIStatus = "error"

	CachePrefixTemplate   CachePrefix = "TEMPLATE_"
	CachePrefixDataSource CachePrefix = "DATA_SOURCE_"
)

// MaskToken replaces sensitive credential values in every outbound view
const MaskToken = "********"

// ImportStatus is the lifecycle of one ingestion run
type ImportStatus string

const (
	ImportPending    ImportStatus = "pending"
	ImportProcessing ImportStatus = "processing"
	ImportSuccess    ImportStatus = "success"
	ImportError      ImportStatus = "error"
)

// Terminal reports whether no further transition is allowed
func (s ImportStatus) Terminal() bool {
	return s == ImportSuccess || s == ImportError
}

// SupplierStatus tracks onboarding
type SupplierStatus string

const (
	SupplierPending   SupplierStatus = "pending"
	SupplierActive    SupplierStatus = "active"
	SupplierInactive  SupplierStatus = "inactive"
	SupplierProbation SupplierStatus = "probation"
)

// Frequency is a schedule recurrence kind
type Frequency string

const (
	FrequencyOnce    Frequency = "once"
	FrequencyHourly  Frequency = "hourly"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyCustom  Frequency = "custom"
)

// Valid reports whether f is a known frequency
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyOnce, FrequencyHourly, FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyCustom:
		return true
	}
	return false
}

// JobType selects the handler a scheduler job runs
type JobType string

const (
	JobIngestion        JobType = "ingestion"
	JobConnectionHealth JobType = "connection_health"
)
