package judge

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"Aegis/internal/domain/models"
	xhttp "Aegis/pkg/http"
)

// verdictPayload is the only response shape the service may return.
type verdictPayload struct {
	Decision  string   `json:"decision" validate:"required,oneof=REJECT APPROVE STRONG_BUY"`
	Score     *int     `json:"score" validate:"required,gte=0,lte=15"`
	Reason    string   `json:"reason" validate:"required"`
	RiskFlags []string `json:"risk_flags" validate:"required"`
}

// ParseVerdict decodes a raw service response. Anything other than a single
// well-formed verdict object wraps ErrContractViolation.
func ParseVerdict(raw string) (models.Verdict, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.Verdict{}, fmt.Errorf("%w: empty response", ErrContractViolation)
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	var p verdictPayload
	if err := dec.Decode(&p); err != nil {
		return models.Verdict{}, fmt.Errorf("%w: %v", ErrContractViolation, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return models.Verdict{}, fmt.Errorf("%w: trailing data after verdict object", ErrContractViolation)
	}
	if err := xhttp.Validator().Struct(&p); err != nil {
		return models.Verdict{}, fmt.Errorf("%w: %v", ErrContractViolation, xhttp.FieldErrors(err))
	}

	return models.Verdict{
		Decision:  models.Decision(p.Decision),
		Score:     *p.Score,
		Reason:    p.Reason,
		RiskFlags: p.RiskFlags,
	}, nil
}
