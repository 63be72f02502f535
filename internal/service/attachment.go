package service

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// AttachmentDir is the media subdirectory holding ticket uploads.
const AttachmentDir = "ticket_attachments"

var allowedAttachmentTypes = []string{"image/jpeg", "image/png", "application/pdf"}

// AttachmentInput is an uploaded file.
type AttachmentInput struct {
	FileName string
	Data     []byte
}

type checkedAttachment struct {
	AttachmentInput
	MimeType  string
	Extension string
}

// checkAttachment enforces the size limit and sniffs the content type; the
// client-declared type is never trusted.
func checkAttachment(a *AttachmentInput, maxBytes int64) (*checkedAttachment, error) {
	if int64(len(a.Data)) > maxBytes {
		return nil, fmt.Errorf("%w: file %s exceeds %dMB limit", domain.ErrAttachmentTooLarge, a.FileName, maxBytes/(1024*1024))
	}
	detected := mimetype.Detect(a.Data)
	for _, allowed := range allowedAttachmentTypes {
		if detected.Is(allowed) {
			return &checkedAttachment{
				AttachmentInput: *a,
				MimeType:        allowed,
				Extension:       detected.Extension(),
			}, nil
		}
	}
	return nil, fmt.Errorf("%w: file %s is not a supported type (JPEG, PNG, PDF)", domain.ErrUnsupportedAttachmentType, a.FileName)
}
