package dto

// TraceListQuery bounds the trace listing.
type TraceListQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// TraceExportQuery selects the export format.
type TraceExportQuery struct {
	Format string `form:"format" binding:"omitempty,oneof=csv pdf"`
}
