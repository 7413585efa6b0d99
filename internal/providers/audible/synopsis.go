package audible

import "strings"

// synopsisReplacer flattens the small set of tags the catalog uses in
// summaries into plain text, keeping paragraph breaks and rendering list
// items as bullets. The table is fixed on purpose: anything outside it is
// left alone rather than guessed at.
var synopsisReplacer = strings.NewReplacer(
	"<i>", "", "</i>", "",
	"<em>", "", "</em>", "",
	"<u>", "", "</u>", "",
	"<b>", "", "</b>", "",
	"<strong>", "", "</strong>", "",
	"<ul>", "", "</ul>", "\n",
	"<ol>", "", "</ol>", "\n",
	"<li>", " • ", "</li>", "\n",
	"<br />", "", "<br/>", "", "<br>", "",
	"<p>", "", "</p>", "\n",
)

// CleanSynopsis turns a summary fragment into display text.
func CleanSynopsis(markup string) string {
	return strings.TrimSpace(synopsisReplacer.Replace(markup))
}
