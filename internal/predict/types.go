package predict

import "github.com/nawabsahab16/ancestral-ai/internal/domain"

// Request is the body accepted by the inference function.
type Request struct {
	PhotoURLs *domain.PhotoURLs `json:"photoUrls" validate:"required"`
	UserID    string            `json:"userId" validate:"required"`
}

// Response is returned on success.
type Response struct {
	ResultURL string `json:"resultUrl"`
	Message   string `json:"message"`
}

// ErrorResponse is returned on failure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// PlaceholderPath marks a result that is not a real prediction.
const PlaceholderPath = "/placeholder.svg"
