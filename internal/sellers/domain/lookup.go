package domain

import (
	"github.com/supplyline/go-sellers-cache/pkg/sellersjson"
)

// Source values reported per result item.
const (
	SourceCache = "cache"
	SourceFresh = "fresh"
)

// LookupRequest asks whether seller IDs appear in one domain's document.
type LookupRequest struct {
	Domain    string   `json:"domain" binding:"required"`
	SellerIDs []string `json:"seller_ids"`
	Force     bool     `json:"force,omitempty"`
}

// SellerResult is the answer for a single requested seller ID.
type SellerResult struct {
	SellerID string              `json:"seller_id"`
	Seller   *sellersjson.Seller `json:"seller,omitempty"`
	Found    bool                `json:"found"`
	Source   string              `json:"source"`
	Error    string              `json:"error,omitempty"`
}

// LookupResponse is the batch lookup result for one domain.
type LookupResponse struct {
	Domain           string                `json:"domain"`
	RequestedCount   int                   `json:"requested_count"`
	FoundCount       int                   `json:"found_count"`
	Results          []SellerResult        `json:"results"`
	Metadata         *sellersjson.Metadata `json:"metadata,omitempty"`
	Cache            CacheMeta             `json:"cache"`
	ProcessingTimeMs int64                 `json:"processing_time_ms"`
}

// MaxParallelRequests bounds how many domains one parallel call may fan
// out across.
const MaxParallelRequests = 10

// ParallelLookupRequest fans a batch lookup out across several domains.
type ParallelLookupRequest struct {
	Requests      []LookupRequest `json:"requests" binding:"required"`
	MaxConcurrent int             `json:"max_concurrent,omitempty"`
	FailFast      bool            `json:"fail_fast,omitempty"`
	ReturnPartial bool            `json:"return_partial,omitempty"`
}

// DomainError describes one failed domain in a parallel lookup.
type DomainError struct {
	Domain            string `json:"domain"`
	Code              string `json:"code,omitempty"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}

// ParallelSummary aggregates the outcome of a parallel lookup.
type ParallelSummary struct {
	TotalDomains     int   `json:"total_domains"`
	CompletedCount   int   `json:"completed_count"`
	FailedCount      int   `json:"failed_count"`
	MaxConcurrent    int   `json:"max_concurrent"`
	ProcessingTimeMs int64 `json:"processing_time_ms"`
}

// ParallelLookupResponse carries per-domain results and errors
// independently, so one broken domain never hides the others.
type ParallelLookupResponse struct {
	ParallelProcessing ParallelSummary   `json:"parallel_processing"`
	Results            []*LookupResponse `json:"results"`
	Errors             []DomainError     `json:"errors"`
}
