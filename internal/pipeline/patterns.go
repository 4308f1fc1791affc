package pipeline

import "regexp"

// Label patterns locate a field name on a line.
var (
	rePurchaseOrderLabel = regexp.MustCompile(`(?i)purchase\s+order`)
	rePOAbbrevLabel      = regexp.MustCompile(`(?i)\bp\.?o\.?\s*(?:#|no\.?|number|:)`)
	reWorkOrderLabel     = regexp.MustCompile(`(?i)work\s+order`)
	reWOAbbrevLabel      = regexp.MustCompile(`(?i)^w\.?o\.?\s*(?:#|no\.?|number|:)`)
	reScheduledDateLabel = regexp.MustCompile(`(?i)scheduled\s+date`)
	reCheckInLabel       = regexp.MustCompile(`(?i)check-in\s+via\s+store\s+phone`)
	reBackupLabel        = regexp.MustCompile(`(?i)ivr\s+backup\s+check-in`)
	reFlatRateLabel      = regexp.MustCompile(`(?i)flat\s+rate\s+price`)
	reShippingTermsLabel = regexp.MustCompile(`(?i)shipping\s+terms`)
	rePaymentTermsLabel  = regexp.MustCompile(`(?i)payment\s+terms`)
	reRemitLabel         = regexp.MustCompile(`(?i)remit\s+all\s+invoices\s+to`)
	reOrderedByLabel     = regexp.MustCompile(`(?i)ordered\s+by`)
	reLocationLabel      = regexp.MustCompile(`(?i)location`)
	reCityLabel          = regexp.MustCompile(`(?i)^city\s*:`)
	reStateLabel         = regexp.MustCompile(`(?i)\bstate\s*:`)
	reNTELabel           = regexp.MustCompile(`(?i)\bnte\s*:`)
	reRemarksLabel       = regexp.MustCompile(`(?i)remarks`)
)

// Value patterns validate or capture a value once a label matched.
var (
	// Order numbers written without a colon: "Work Order #12345", "PO 777".
	reOrderToken = regexp.MustCompile(`(?i)^\s*(?:#|no\.?|number)?\s*#?\s*([A-Za-z-]*\d[A-Za-z0-9-]*)`)
	reEmail      = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
)

// Body markers split free text rather than a single line.
var (
	reInstructionsMarker = regexp.MustCompile(`(?i)instructions:`)
	reDeliverablesMarker = regexp.MustCompile(`(?i)deliverables`)
)

// Fallback patterns scan the whole document for fields no label produced.
var (
	reStateFallback      = regexp.MustCompile(`, ([A-Z]{2})\b`)
	reCityFallback       = regexp.MustCompile(`([A-Za-z][A-Za-z.'\- ]*), [A-Z]{2}\b`)
	reWorkOrderFallback  = regexp.MustCompile(`\bW\.?O\.?\s*#?\s*:?\s*(\d{3,})\b`)
	rePOFallback         = regexp.MustCompile(`\bP\.?O\.?\s*#?\s*:?\s*(\d{3,})\b`)
	reDate               = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`)
	reDateHint           = regexp.MustCompile(`(?i)date|schedul`)
	rePhone              = regexp.MustCompile(`\(?\b\d{3}\)?[-.\s]?\d{3}[-.\s]\d{4}\b`)
	reCheckInHint        = regexp.MustCompile(`(?i)check[- ]?in`)
	reAmount             = regexp.MustCompile(`\$\s?(\d[\d,]*(?:\.\d{2})?)`)
	rePriceHint          = regexp.MustCompile(`(?i)price|rate`)
	reInvoiceHint        = regexp.MustCompile(`(?i)invoice`)
)
