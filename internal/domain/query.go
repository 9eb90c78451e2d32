package domain

// QueryRequest is a search submission: free text and/or an image attachment.
type QueryRequest struct {
	Text      string
	Image     []byte
	ImageName string
}

// HasImage reports whether an image is attached.
func (q QueryRequest) HasImage() bool { return len(q.Image) > 0 }
