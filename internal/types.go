package internal

// NotAvailable is the display value of a field nothing matched.
const NotAvailable = "N/A"

type Field string

const (
	FieldWorkOrder       Field = "workOrder"
	FieldPurchaseOrder   Field = "purchaseOrder"
	FieldScheduledDate   Field = "scheduledDate"
	FieldLocation        Field = "location"
	FieldCity            Field = "city"
	FieldState           Field = "state"
	FieldCheckInPhone    Field = "checkInPhone"
	FieldBackupPhone     Field = "ivrBackupPhone"
	FieldFlatRatePrice   Field = "flatRatePrice"
	FieldShippingTerms   Field = "shippingTerms"
	FieldPaymentTerms    Field = "paymentTerms"
	FieldItemDescription Field = "itemDescription"
	FieldUnitCost        Field = "unitCost"
	FieldQuantity        Field = "quantity"
	FieldTotalCost       Field = "totalCost"
	FieldNotes           Field = "notes"
	FieldScopeOfWork     Field = "scopeOfWork"
	FieldPM              Field = "pm"
	FieldPMEmail         Field = "pmEmail"
	FieldProject         Field = "project"
	FieldWOFile          Field = "woFile"
	FieldAssignee        Field = "assignee"
)

// AllFields is the fixed field set of a record, in export order.
var AllFields = []Field{
	FieldWorkOrder,
	FieldPurchaseOrder,
	FieldScheduledDate,
	FieldLocation,
	FieldCity,
	FieldState,
	FieldCheckInPhone,
	FieldBackupPhone,
	FieldFlatRatePrice,
	FieldShippingTerms,
	FieldPaymentTerms,
	FieldItemDescription,
	FieldUnitCost,
	FieldQuantity,
	FieldTotalCost,
	FieldNotes,
	FieldScopeOfWork,
	FieldPM,
	FieldPMEmail,
	FieldProject,
	FieldWOFile,
	FieldAssignee,
}

func IsField(name string) bool {
	for _, f := range AllFields {
		if string(f) == name {
			return true
		}
	}
	return false
}

type DocumentKind string

const (
	KindPDF   DocumentKind = "pdf"
	KindEmail DocumentKind = "email"
	KindText  DocumentKind = "text"
	KindHTML  DocumentKind = "html"
)

// Identity is the board user every created item is assigned to.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type DocumentStatus string

const (
	StatusFetched DocumentStatus = "fetched"
	StatusSkipped DocumentStatus = "skipped"
	StatusCreated DocumentStatus = "created"
	StatusFailed  DocumentStatus = "failed"
)

type DocumentRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

type ItemExportRow struct {
	DocumentID   int
	ExtractionID int
	Part         string
	TraceID      string
	Fields       map[string]string
	ItemID       *string
	Status       string
}
