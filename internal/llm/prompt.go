package llm

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/price-intel/constants"
)

// OfferRequest carries what the offer reconstruction prompt needs.
type OfferRequest struct {
	Text            string
	FilenameHint    string
	RegionHint      string
	DefaultCurrency string
	MaxInputChars   int
}

// AssessmentRequest carries a customer inquiry and the text of any attachments.
type AssessmentRequest struct {
	Message       string
	Documents     []string
	Budget        *float64
	Timeline      string
	Urgency       string
	MaxInputChars int
}

// BuildOfferPrompt composes the prompt for reconstructing a finished offer.
func BuildOfferPrompt(req OfferRequest) Prompt {
	defCur := strings.TrimSpace(req.DefaultCurrency)
	if defCur == "" {
		defCur = "EUR"
	}

	parts := []string{
		"You digitize finished craftsman offers (Angebote) and bills of quantities (Leistungsverzeichnisse) written mostly in German.",
		"Return ONLY JSON that matches the provided JSON Schema.",
		"Copy every priced line item into 'positions' in document order. Skip subtotal, VAT and grand total lines.",
		"Write numbers as plain JSON numbers with a dot as decimal separator (45.5, not \"45,50\").",
		"'unit_price' is the net price per unit (EP); 'quantity' is the amount (Menge); 'unit' is the unit as written (Stk, m, m2, h, psch).",
		"'category' must be exactly one of: " + strings.Join(constants.AsStringSlice(), ", ") + ". Use labor for Lohn/Arbeitszeit lines.",
		"'trade_category' is the trade (Gewerk) such as Elektro, Sanitaer, Maler; keep it the same for all positions of one trade.",
		"'confidence' is your certainty from 0 to 1 that quantity, unit and unit price were read correctly. Use below 0.7 when a value was guessed.",
		"Use ISO-8601 dates (YYYY-MM-DD). Currency must be a 3-letter ISO 4217 code; default to " + defCur + " if uncertain.",
		"Never output null. If a field is not present, omit it.",
	}
	if r := strings.TrimSpace(req.RegionHint); r != "" {
		parts = append(parts, "The offer is from region "+r+"; use it for metadata.region unless the document says otherwise.")
	}

	var b strings.Builder
	if f := strings.TrimSpace(req.FilenameHint); f != "" {
		b.WriteString("Filename: ")
		b.WriteString(f)
		b.WriteString("\n\n")
	}
	text, truncated := Truncate(strings.TrimSpace(req.Text), req.MaxInputChars)
	b.WriteString("Document text:\n")
	b.WriteString(text)
	if truncated {
		b.WriteString("\n…(truncated)")
	}

	return Prompt{Name: "offer.reconstruct", System: strings.Join(parts, " "), User: b.String()}
}

// BuildAssessmentPrompt composes the lead qualification prompt.
func BuildAssessmentPrompt(req AssessmentRequest) Prompt {
	parts := []string{
		"You qualify incoming customer inquiries for a German craftsman business.",
		"Return ONLY JSON that matches the provided JSON Schema.",
		"'complexity' and 'urgency' must be one of: " + strings.Join(constants.Levels(), ", ") + ".",
		"'estimated_value' is the expected net order value in EUR.",
		"'suggested_positions' lists the line items an offer would need, with quantity, unit and an estimated net unit price.",
		"Write numbers as plain JSON numbers with a dot as decimal separator.",
	}

	var b strings.Builder
	b.WriteString("Customer message:\n")
	b.WriteString(strings.TrimSpace(req.Message))
	b.WriteString("\n")

	var ctx []string
	if req.Budget != nil {
		ctx = append(ctx, fmt.Sprintf("budget: %.2f EUR", *req.Budget))
	}
	if t := strings.TrimSpace(req.Timeline); t != "" {
		ctx = append(ctx, "timeline: "+t)
	}
	if u := strings.TrimSpace(req.Urgency); u != "" {
		ctx = append(ctx, "stated urgency: "+u)
	}
	if len(ctx) > 0 {
		b.WriteString("\nContext: ")
		b.WriteString(strings.Join(ctx, "; "))
		b.WriteString("\n")
	}

	budget := req.MaxInputChars
	for i, doc := range req.Documents {
		doc = strings.TrimSpace(doc)
		if doc == "" {
			continue
		}
		text, truncated := Truncate(doc, budget)
		fmt.Fprintf(&b, "\nAttachment %d:\n%s\n", i+1, text)
		if truncated {
			b.WriteString("…(truncated)\n")
			break
		}
		if budget > 0 {
			budget -= utf8.RuneCountInString(text)
			if budget <= 0 {
				break
			}
		}
	}

	return Prompt{Name: "lead.assess", System: strings.Join(parts, " "), User: strings.TrimRight(b.String(), "\n")}
}

// Truncate cuts s to at most max runes. max <= 0 means no limit.
func Truncate(s string, max int) (string, bool) {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s, false
	}
	r := []rune(s)
	return string(r[:max]), true
}
