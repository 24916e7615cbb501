package domain

// MaxProofBytes is the largest payment proof image accepted.
const MaxProofBytes = 5 * 1024 * 1024

type EvidenceKind int

const (
	EvidenceNone EvidenceKind = iota
	EvidenceUpload
	EvidenceReference
)

func (k EvidenceKind) String() string {
	switch k {
	case EvidenceUpload:
		return "upload"
	case EvidenceReference:
		return "reference"
	default:
		return "none"
	}
}

// Upload is an image of a bank transfer or receipt.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Reference is a typed transaction number.
type Reference struct {
	TransactionID string
}

// PaymentEvidence holds exactly one of Upload or Reference. Build it with
// UploadEvidence or ReferenceEvidence; the zero value carries neither.
type PaymentEvidence struct {
	kind      EvidenceKind
	upload    *Upload
	reference *Reference
}

func UploadEvidence(u Upload) PaymentEvidence {
	return PaymentEvidence{kind: EvidenceUpload, upload: &u}
}

func ReferenceEvidence(transactionID string) PaymentEvidence {
	return PaymentEvidence{kind: EvidenceReference, reference: &Reference{TransactionID: transactionID}}
}

func (e PaymentEvidence) Kind() EvidenceKind { return e.kind }

func (e PaymentEvidence) Upload() (Upload, bool) {
	if e.kind != EvidenceUpload || e.upload == nil {
		return Upload{}, false
	}
	return *e.upload, true
}

func (e PaymentEvidence) Reference() (Reference, bool) {
	if e.kind != EvidenceReference || e.reference == nil {
		return Reference{}, false
	}
	return *e.reference, true
}
