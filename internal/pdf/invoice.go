package pdf

import (
	"strconv"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// InvoiceData is the full payload for an invoice document.
type InvoiceData struct {
	Number    string
	IssueDate string
	DueDate   string
	Status    string

	Developer PartyData
	Client    PartyData

	Items []InvoiceItemData

	Currency   string
	Subtotal   int64
	TaxAmount  int64
	Total      int64
	PaidAmount int64
	Notes      string
}

// InvoiceItemData is one line item.
type InvoiceItemData struct {
	Description string
	Quantity    float64
	UnitPrice   int64
	Amount      int64
}

// Invoice renders the invoice document and returns the PDF bytes.
func Invoice(data InvoiceData) ([]byte, error) {
	m := maroto.New()

	m.AddRow(14,
		text.NewCol(8, "INVOICE", props.Text{Size: 20, Style: fontstyle.Bold}),
		text.NewCol(4, data.Number, props.Text{Size: 12, Align: align.Right, Top: 3}),
	)
	m.AddRow(6,
		text.NewCol(8, ""),
		text.NewCol(4, "Issued: "+data.IssueDate, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(6,
		text.NewCol(8, ""),
		text.NewCol(4, "Due: "+data.DueDate, props.Text{Size: 9, Align: align.Right}),
	)

	m.AddRow(8,
		text.NewCol(6, "From", props.Text{Size: 9, Style: fontstyle.Bold, Top: 2}),
		text.NewCol(6, "Bill To", props.Text{Size: 9, Style: fontstyle.Bold, Top: 2}),
	)
	m.AddRow(16,
		text.NewCol(6, partyBlock(data.Developer), props.Text{Size: 9}),
		text.NewCol(6, partyBlock(data.Client), props.Text{Size: 9}),
	)

	m.AddRow(8,
		text.NewCol(6, "Description", props.Text{Size: 9, Style: fontstyle.Bold, Top: 2}),
		text.NewCol(2, "Qty", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right, Top: 2}),
		text.NewCol(2, "Unit", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right, Top: 2}),
		text.NewCol(2, "Amount", props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right, Top: 2}),
	)
	for _, item := range data.Items {
		m.AddRow(6,
			text.NewCol(6, item.Description, props.Text{Size: 9}),
			text.NewCol(2, formatQuantity(item.Quantity), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, FormatMoney(item.UnitPrice, data.Currency), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, FormatMoney(item.Amount, data.Currency), props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(8,
		text.NewCol(8, ""),
		text.NewCol(2, "Subtotal", props.Text{Size: 9, Align: align.Right, Top: 2}),
		text.NewCol(2, FormatMoney(data.Subtotal, data.Currency), props.Text{Size: 9, Align: align.Right, Top: 2}),
	)
	m.AddRow(6,
		text.NewCol(8, ""),
		text.NewCol(2, "Tax", props.Text{Size: 9, Align: align.Right}),
		text.NewCol(2, FormatMoney(data.TaxAmount, data.Currency), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(6,
		text.NewCol(8, ""),
		text.NewCol(2, "Total", props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
		text.NewCol(2, FormatMoney(data.Total, data.Currency), props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
	)
	if data.PaidAmount > 0 {
		m.AddRow(6,
			text.NewCol(8, ""),
			text.NewCol(2, "Paid", props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, FormatMoney(data.PaidAmount, data.Currency), props.Text{Size: 9, Align: align.Right}),
		)
		m.AddRow(6,
			text.NewCol(8, ""),
			text.NewCol(2, "Balance Due", props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
			text.NewCol(2, FormatMoney(data.Total-data.PaidAmount, data.Currency), props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
		)
	}

	if data.Notes != "" {
		m.AddRow(10, text.NewCol(12, "Notes", props.Text{Size: 9, Style: fontstyle.Bold, Top: 4}))
		m.AddRow(10, text.NewCol(12, data.Notes, props.Text{Size: 9}))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func partyBlock(p PartyData) string {
	out := p.Name
	if p.Company != "" && p.Company != p.Name {
		out += "\n" + p.Company
	}
	if p.Address != "" {
		out += "\n" + p.Address
	}
	if p.Email != "" {
		out += "\n" + p.Email
	}
	return out
}

func formatQuantity(q float64) string {
	if q == float64(int64(q)) {
		return strconv.FormatInt(int64(q), 10)
	}
	return strconv.FormatFloat(q, 'f', 2, 64)
}
