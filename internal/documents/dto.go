package documents

import "time"

// DocumentResponse is how a stored résumé is shown to its owner.
type DocumentResponse struct {
	DocumentID    string     `json:"documentId"`
	FileName      string     `json:"fileName"`
	Format        string     `json:"format"`
	MimeType      string     `json:"mimeType"`
	SizeBytes     int64      `json:"sizeBytes"`
	TextExtracted bool       `json:"textExtracted"`
	ExtractedAt   *time.Time `json:"extractedAt,omitempty"`
	UploadedAt    time.Time  `json:"uploadedAt"`
}

func toResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		DocumentID:    doc.ID,
		FileName:      doc.FileName,
		Format:        doc.Format(),
		MimeType:      doc.MimeType,
		SizeBytes:     doc.SizeBytes,
		TextExtracted: doc.HasText(),
		ExtractedAt:   doc.ExtractedAt,
		UploadedAt:    doc.CreatedAt,
	}
}
