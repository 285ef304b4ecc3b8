package constants

import "time"

const (
	// Bucket widths used for storage keys and chart steps
	HourBucket = time.Hour
	DayBucket  = 24 * time.Hour

	HourBucketSeconds = int64(HourBucket / time.Second)
	DayBucketSeconds  = int64(DayBucket / time.Second)
)

const (
	// GroupingOther is the synthetic contributor absorbing small pieces
	GroupingOther = "__other__"
	// GroupingOtherDisplay is how GroupingOther is labelled
	GroupingOtherDisplay = "Other"

	// TotalTaskID identifies the virtual task summing every visible program
	TotalTaskID = "Total"
	// CategoryTaskPrefix prefixes the id of a virtual category task
	CategoryTaskPrefix = "CATEGORY_"
)
