package audible

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// structuredHarvest is what the page's ld+json blocks yield: the product
// block supplies the date and most descriptive fields, the breadcrumb
// block the genre pair.
type structuredHarvest struct {
	DateText    string
	Title       string
	Thumbnail   string
	Publisher   string
	Description string
	Rating      float64
	Authors     []string
	Narrators   []string
	GenreParent string
	GenreChild  string
}

// parseStructuredData walks every ld+json script on the page. The catalog
// emits several blocks per page and their order is not stable, so blocks
// are recognized by shape: one carrying "datePublished" is the product,
// one carrying "itemListElement" is the breadcrumb trail. Blocks that fail
// to decode even after escape repair are skipped.
func parseStructuredData(doc *goquery.Document) structuredHarvest {
	var harvest structuredHarvest
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, script *goquery.Selection) {
		payload := repairInvalidEscapes(strings.ReplaceAll(script.Text(), "\n", ""))
		var decoded any
		if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
			return
		}
		for _, block := range asBlockList(decoded) {
			if _, ok := block["datePublished"]; ok {
				harvestProduct(&harvest, block)
			}
			if trail, ok := block["itemListElement"].([]any); ok {
				harvestBreadcrumb(&harvest, trail)
			}
		}
	})
	return harvest
}

func asBlockList(decoded any) []map[string]any {
	switch v := decoded.(type) {
	case []any:
		blocks := make([]map[string]any, 0, len(v))
		for _, entry := range v {
			if block, ok := entry.(map[string]any); ok {
				blocks = append(blocks, block)
			}
		}
		return blocks
	case map[string]any:
		return []map[string]any{v}
	default:
		return nil
	}
}

func harvestProduct(harvest *structuredHarvest, block map[string]any) {
	harvest.DateText = stringField(block, "datePublished")
	harvest.Title = stringField(block, "name")
	harvest.Thumbnail = stringField(block, "image")
	harvest.Publisher = stringField(block, "publisher")
	harvest.Description = stringField(block, "description")
	harvest.Authors = nameList(block["author"])
	harvest.Narrators = nameList(block["readBy"])
	if rating, ok := block["aggregateRating"].(map[string]any); ok {
		harvest.Rating = numberField(rating, "ratingValue")
	}
}

// harvestBreadcrumb reads the second and third crumbs of the trail, which
// carry the parent and child genre. Each entry wraps its payload in an
// "item" object.
func harvestBreadcrumb(harvest *structuredHarvest, trail []any) {
	harvest.GenreParent = crumbName(trail, 1)
	harvest.GenreChild = crumbName(trail, 2)
}

// nameList reads the "name" of each person object in a ld+json field that
// holds either a single object or a list of them.
func nameList(value any) []string {
	var names []string
	for _, entry := range asBlockList(value) {
		if name := stringField(entry, "name"); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func crumbName(trail []any, index int) string {
	if index >= len(trail) {
		return ""
	}
	entry, ok := trail[index].(map[string]any)
	if !ok {
		return ""
	}
	if item, ok := entry["item"].(map[string]any); ok {
		return stringField(item, "name")
	}
	return stringField(entry, "name")
}

func stringField(block map[string]any, key string) string {
	value, _ := block[key].(string)
	return strings.TrimSpace(value)
}

func numberField(block map[string]any, key string) float64 {
	switch v := block[key].(type) {
	case float64:
		return v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

// repairInvalidEscapes doubles any backslash that does not start a legal
// escape sequence. The catalog's blocks routinely carry stray backslashes
// from un-escaped content (Windows paths, LaTeX fragments) that make the
// whole block undecodable.
func repairInvalidEscapes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if n := escapeLength(s[i+1:]); n > 0 {
			b.WriteString(s[i : i+1+n])
			i += n
			continue
		}
		b.WriteString(`\\`)
	}
	return b.String()
}

// escapeLength returns how many bytes after the backslash belong to a
// legal escape, or 0 when the sequence is invalid.
func escapeLength(rest string) int {
	if rest == "" {
		return 0
	}
	switch rest[0] {
	case 'b', 'f', 'n', 'r', 't', '"', '\'', '\\', '/':
		return 1
	case 'u':
		if len(rest) >= 5 && isHex(rest[1]) && isHex(rest[2]) && isHex(rest[3]) && isHex(rest[4]) {
			return 5
		}
		return 0
	default:
		return 0
	}
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
