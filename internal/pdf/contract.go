package pdf

import (
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// ContractData is the full payload for a contract document.
type ContractData struct {
	Number string
	Title  string
	Body   string
	Status string

	Developer PartyData
	Client    PartyData

	// Signature block, present only once signed.
	SignerName string
	SignerIP   string
	SignedAt   string
}

// Contract renders the contract document and returns the PDF bytes.
func Contract(data ContractData) ([]byte, error) {
	m := maroto.New()

	m.AddRow(14,
		text.NewCol(8, data.Title, props.Text{Size: 18, Style: fontstyle.Bold}),
		text.NewCol(4, data.Number, props.Text{Size: 11, Align: align.Right, Top: 3}),
	)

	m.AddRow(8,
		text.NewCol(6, "Provider", props.Text{Size: 9, Style: fontstyle.Bold, Top: 2}),
		text.NewCol(6, "Client", props.Text{Size: 9, Style: fontstyle.Bold, Top: 2}),
	)
	m.AddRow(16,
		text.NewCol(6, partyBlock(data.Developer), props.Text{Size: 9}),
		text.NewCol(6, partyBlock(data.Client), props.Text{Size: 9}),
	)

	for _, paragraph := range strings.Split(data.Body, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		m.AddRow(rowHeightFor(paragraph), text.NewCol(12, paragraph, props.Text{Size: 10}))
	}

	if data.SignedAt != "" {
		m.AddRow(10, text.NewCol(12, "Signed", props.Text{Size: 10, Style: fontstyle.Bold, Top: 4}))
		m.AddRow(6, text.NewCol(12, "Signed by "+data.SignerName+" on "+data.SignedAt, props.Text{Size: 9}))
		m.AddRow(6, text.NewCol(12, "IP address: "+data.SignerIP, props.Text{Size: 8}))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

// rowHeightFor sizes a text row roughly by line count so long paragraphs do
// not overlap the next row.
func rowHeightFor(paragraph string) float64 {
	lines := float64(len(paragraph)/90 + 1)
	return lines * 5
}
