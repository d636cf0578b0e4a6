package extract

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/joseph-ayodele/price-intel/constants"
)

// GAEBPosition is one Item of a GAEB DA XML bill of quantities.
// UnitPrice and TotalPrice are nil for price-less exchange phases.
type GAEBPosition struct {
	Code        string
	Description string
	Quantity    float64
	Unit        string
	UnitPrice   *float64
	TotalPrice  *float64
}

// Data phases 81 (bill of quantities) and 83 (request for offer) carry no prices.
func phaseHasPrices(dp string) bool {
	return dp != "81" && dp != "83"
}

type gaebFile struct {
	XMLName xml.Name `xml:"GAEB"`
	Award   struct {
		DP  string `xml:"DP"`
		BoQ struct {
			Info struct {
				Name string `xml:"Name"`
			} `xml:"BoQInfo"`
			Body gaebBody `xml:"BoQBody"`
		} `xml:"BoQ"`
	} `xml:"Award"`
}

type gaebBody struct {
	Categories []gaebCategory `xml:"BoQCtgy"`
	Itemlists  []gaebItemlist `xml:"Itemlist"`
}

type gaebCategory struct {
	RNoPart string   `xml:"RNoPart,attr"`
	Label   gaebText `xml:"LblTx"`
	Body    gaebBody `xml:"BoQBody"`
}

type gaebItemlist struct {
	Items []gaebItem `xml:"Item"`
}

type gaebItem struct {
	RNoPart     string `xml:"RNoPart,attr"`
	Qty         string `xml:"Qty"`
	QU          string `xml:"QU"`
	UP          string `xml:"UP"`
	IT          string `xml:"IT"`
	Description struct {
		Outline gaebText `xml:"CompleteText>OutlineText"`
		Detail  gaebText `xml:"CompleteText>DetailTxt"`
	} `xml:"Description"`
}

type gaebText struct {
	Inner string `xml:",innerxml"`
}

var reTags = regexp.MustCompile(`<[^>]*>`)

func (t gaebText) String() string {
	s := reTags.ReplaceAllString(t.Inner, " ")
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}

// ParseGAEB reads a GAEB DA XML file. ext is used to pick the data phase when
// the file does not declare one.
func ParseGAEB(data []byte, ext string) (dp string, name string, positions []GAEBPosition, err error) {
	var f gaebFile
	dec := xml.NewDecoder(bytes.NewReader(data))
	// GAEB files are commonly declared ISO-8859-1
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&f); err != nil {
		return "", "", nil, fmt.Errorf("parse gaeb xml: %w", err)
	}

	dp = strings.TrimSpace(f.Award.DP)
	if dp == "" {
		dp = strings.TrimPrefix(constants.NormalizeExt(ext), "x")
	}
	withPrices := phaseHasPrices(dp)

	var walk func(body gaebBody, prefix []string) error
	walk = func(body gaebBody, prefix []string) error {
		for _, c := range body.Categories {
			if err := walk(c.Body, append(prefix, strings.TrimSpace(c.RNoPart))); err != nil {
				return err
			}
		}
		for _, list := range body.Itemlists {
			for _, it := range list.Items {
				p, err := it.position(prefix, withPrices)
				if err != nil {
					return err
				}
				positions = append(positions, p)
			}
		}
		return nil
	}
	if err := walk(f.Award.BoQ.Body, nil); err != nil {
		return dp, "", nil, err
	}
	return dp, strings.TrimSpace(f.Award.BoQ.Info.Name), positions, nil
}

func (it gaebItem) position(prefix []string, withPrices bool) (GAEBPosition, error) {
	code := strings.Join(append(append([]string{}, prefix...), strings.TrimSpace(it.RNoPart)), ".")
	p := GAEBPosition{
		Code:        code,
		Description: it.Description.Outline.String(),
		Unit:        strings.TrimSpace(it.QU),
	}
	if p.Description == "" {
		p.Description = it.Description.Detail.String()
	}

	var err error
	if p.Quantity, err = parseGAEBNumber(it.Qty); err != nil {
		return p, fmt.Errorf("position %s: quantity: %w", code, err)
	}
	if !withPrices {
		return p, nil
	}
	if strings.TrimSpace(it.UP) != "" {
		up, err := parseGAEBNumber(it.UP)
		if err != nil {
			return p, fmt.Errorf("position %s: unit price: %w", code, err)
		}
		p.UnitPrice = &up
	}
	if strings.TrimSpace(it.IT) != "" {
		total, err := parseGAEBNumber(it.IT)
		if err != nil {
			return p, fmt.Errorf("position %s: total: %w", code, err)
		}
		p.TotalPrice = &total
	}
	return p, nil
}

func parseGAEBNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func extractGAEB(doc Document, res *Result) error {
	dp, name, positions, err := ParseGAEB(doc.Data, filepath.Ext(doc.Filename))
	if err != nil {
		return err
	}
	if len(positions) == 0 {
		return fmt.Errorf("gaeb file has no positions")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "=== GAEB DA%s", dp)
	if name != "" {
		fmt.Fprintf(&b, ": %s", name)
	}
	b.WriteString(" ===\n")
	for _, p := range positions {
		b.WriteString(FormatGAEBLine(p))
		b.WriteString("\n")
	}

	res.Method = "gaeb-xml"
	res.Positions = positions
	res.Text = strings.TrimRight(b.String(), "\n")
	if !phaseHasPrices(dp) {
		res.Warnings = append(res.Warnings, fmt.Sprintf("data phase %s carries no prices", dp))
	}
	return nil
}

// FormatGAEBLine renders "OZ <code> | <qty> <unit> | EP <price> | GP <total> | <text>".
func FormatGAEBLine(p GAEBPosition) string {
	return fmt.Sprintf("OZ %s | %s %s | EP %s | GP %s | %s",
		p.Code,
		strconv.FormatFloat(p.Quantity, 'f', -1, 64),
		p.Unit,
		formatOptionalPrice(p.UnitPrice),
		formatOptionalPrice(p.TotalPrice),
		p.Description,
	)
}

func formatOptionalPrice(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
