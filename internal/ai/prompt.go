package ai

import (
	"fmt"
	"strings"
)

const assistantInstruction = `You are a helpful shopping assistant for a second-hand marketplace.
Answer the buyer's question using only the listing data below. Be concise (three sentences at most).
If the listing does not contain the answer, say so and suggest contacting the seller.
If the question is unrelated to the item, politely guide the buyer back to the listing.`

// ItemFacts is the listing data the assistant may rely on.
type ItemFacts struct {
	Name        string
	Description string
	PriceCents  int64
	Quantity    int
	Condition   string
	Category    string
}

func (f ItemFacts) price() string {
	return fmt.Sprintf("%d.%02d", f.PriceCents/100, f.PriceCents%100)
}

// BuildItemPrompt renders the listing block sent with every question.
func BuildItemPrompt(f ItemFacts) string {
	var b strings.Builder
	b.WriteString("Listing:\n")
	fmt.Fprintf(&b, "Name: %s\n", strings.TrimSpace(f.Name))
	fmt.Fprintf(&b, "Description: %s\n", strings.TrimSpace(f.Description))
	fmt.Fprintf(&b, "Price: %s\n", f.price())
	fmt.Fprintf(&b, "Quantity: %d\n", f.Quantity)
	if c := strings.TrimSpace(f.Condition); c != "" {
		fmt.Fprintf(&b, "Condition: %s\n", c)
	}
	if c := strings.TrimSpace(f.Category); c != "" {
		fmt.Fprintf(&b, "Category: %s\n", c)
	}
	return b.String()
}

func buildQuestion(q string) string {
	return "Question: " + strings.TrimSpace(q)
}
