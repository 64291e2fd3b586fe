// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agents

import (
	"context"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/pdiddy/research-orchestrator/internal/genai"
	"github.com/pdiddy/research-orchestrator/pkg/types"
)

// InsufficientDataIssue is injected when an unverified verdict lists no
// issues.
const InsufficientDataIssue = "Insufficient verification data"

var factCheckPromptTmpl = template.Must(template.New("factcheck").Parse(`Fact check this research finding:
Content: {{.Content}}
Sources: {{.Sources}}
Confidence: {{printf "%.2f" .Confidence}}

Verify:
1. Consistency across sources
2. Potential biases
3. Currency of information
4. Credibility of sources
5. Logical consistency

Return a JSON object with this exact format:
{
  "verification_status": "verified|partially_verified|unverified",
  "confidence_score": 0.0,
  "issues_found": [],
  "suggestions": []
}
`))

// FactCheckAgent verifies findings.
type FactCheckAgent struct {
	base
}

// NewFactCheckAgent returns a FactCheckAgent that calls gen.
func NewFactCheckAgent(gen genai.Generator, logger *zap.Logger) *FactCheckAgent {
	return &FactCheckAgent{base: newBase(types.RoleFactChecker, "fact_check", gen, logger)}
}

// Verify asks for a verdict on f and normalizes it. The status is always
// one of the three known values and the confidence is in [0,1].
func (a *FactCheckAgent) Verify(ctx context.Context, f types.Finding) types.VerificationResult {
	prompt, err := render(factCheckPromptTmpl, struct {
		Content    string
		Sources    string
		Confidence float64
	}{f.Content, strings.Join(f.URLs, ", "), f.Confidence})
	if err != nil {
		a.fellBack("rendering prompt", err)
		return FallbackVerification()
	}
	out, err := a.generate(ctx, prompt)
	if err != nil {
		a.fellBack("generation failed", err)
		return FallbackVerification()
	}
	v, err := parseVerification(out)
	if err != nil {
		a.fellBack("malformed verdict", err)
		return FallbackVerification()
	}
	return v
}

// FallbackVerification is the verdict used when verification itself fails.
func FallbackVerification() types.VerificationResult {
	return types.VerificationResult{
		Status:          types.StatusUnverified,
		ConfidenceScore: 0,
		IssuesFound:     []string{"Verification process failed"},
		Suggestions:     []string{"Retry verification", "Check source reliability"},
	}
}

// parseVerification decodes a verdict object and normalizes every field.
// It fails only when text holds no JSON object.
func parseVerification(text string) (types.VerificationResult, error) {
	m, err := genai.DecodeObject(text)
	if err != nil {
		return types.VerificationResult{}, err
	}

	status := types.StatusUnverified
	if s, ok := asString(m["verification_status"]); ok && types.VerificationStatus(s).Valid() {
		status = types.VerificationStatus(s)
	}
	confidence, _ := asFloat(m["confidence_score"])
	issues, _ := stringList(m["issues_found"])
	suggestions, _ := stringList(m["suggestions"])

	if status == types.StatusUnverified && len(issues) == 0 {
		issues = []string{InsufficientDataIssue}
	}
	return types.VerificationResult{
		Status:          status,
		ConfidenceScore: clamp(confidence, 0, 1),
		IssuesFound:     issues,
		Suggestions:     suggestions,
	}, nil
}
