package domain

import "time"

// BarcodeProduct is the resolved product for a scanned barcode. The scanning
// and caching core treats it as an opaque payload; its shape is owned by the
// lookup backend.
type BarcodeProduct struct {
	Barcode string  `json:"barcode"`
	Name    string  `json:"name"`
	Brand   string  `json:"brand,omitempty"`
	Per100g Per100g `json:"per100g"`
	Source  string  `json:"source,omitempty"` // e.g. "openfoodfacts"
	Partial bool    `json:"partial,omitempty"`
}

// Per100g contains macronutrients per 100 grams of product
type Per100g struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"` // grams
	Carbs    float64 `json:"carbs"`   // grams
	Fat      float64 `json:"fat"`     // grams
}

// FailureReason is the closed taxonomy for lookup failures
type FailureReason string

const (
	ReasonInvalid    FailureReason = "invalid"     // malformed length, no network attempted
	ReasonNotFound   FailureReason = "not_found"   // valid barcode, no product match
	ReasonPartial    FailureReason = "partial"     // match found but incomplete data
	ReasonNetwork    FailureReason = "network"     // transport failure
	ReasonBadBarcode FailureReason = "bad_barcode" // backend rejected the format
	ReasonUnknown    FailureReason = "unknown"
)

// LookupResult is the discriminated union resolved by every lookup call.
// OK selects the branch: success carries Product and FromCache, failure
// carries Reason/Message and, when the backend answered, the HTTP Status.
type LookupResult struct {
	OK        bool            `json:"ok"`
	Product   *BarcodeProduct `json:"product,omitempty"`
	FromCache bool            `json:"fromCache,omitempty"`
	Reason    FailureReason   `json:"reason,omitempty"`
	Message   string          `json:"message,omitempty"`
	Status    int             `json:"status,omitempty"`
}

// LookupOK builds the success branch of a LookupResult
func LookupOK(product *BarcodeProduct, fromCache bool) LookupResult {
	return LookupResult{OK: true, Product: product, FromCache: fromCache}
}

// LookupFail builds the failure branch of a LookupResult
func LookupFail(reason FailureReason, message string, status int) LookupResult {
	return LookupResult{OK: false, Reason: reason, Message: message, Status: status}
}

// ScanRecord is one resolved scan kept in the history store
type ScanRecord struct {
	ID          string    `json:"id"`
	Barcode     string    `json:"barcode"`
	ProductName string    `json:"productName"`
	Brand       string    `json:"brand,omitempty"`
	Source      string    `json:"source,omitempty"`
	ScannedAt   time.Time `json:"scannedAt"`
}
