// internal/textmatch/locator.go
package textmatch

import (
	"fmt"
	"strings"
)

const (
	asciiUpper = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	asciiLower = "abcdefghijklmnopqrstuvwxyz"
)

// clickableCondition matches the elements a user would consider buttons:
// button and a elements, anything with role=button, and button-like inputs.
const clickableCondition = `self::button or self::a or @role='button' or ` +
	`(self::input and (@type='button' or @type='submit'))`

// ButtonXPath builds an XPath locating the first clickable element whose
// visible text equals the given caption after whitespace normalization.
// Case-insensitive matching folds ASCII only, which is what XPath 1.0
// translate() can express inside the browser.
func ButtonXPath(text string, opts Options) string {
	caption := text
	if opts.CollapseWhitespace {
		n := NewNormalizer(Options{CollapseWhitespace: true})
		caption = n.Normalize(caption)
	}

	textExpr := "normalize-space(.)"
	valueExpr := "normalize-space(@value)"
	literal := xpathLiteral(caption)

	if opts.CaseInsensitive {
		textExpr = fmt.Sprintf("translate(%s, '%s', '%s')", textExpr, asciiUpper, asciiLower)
		valueExpr = fmt.Sprintf("translate(%s, '%s', '%s')", valueExpr, asciiUpper, asciiLower)
		literal = xpathLiteral(strings.ToLower(caption))
	}

	return fmt.Sprintf("(//*[%s][%s=%s or %s=%s])[1]",
		clickableCondition, textExpr, literal, valueExpr, literal)
}

// ContainsTextXPath builds an XPath matching any element whose text contains
// the given fragment after whitespace normalization. Used for visibility
// waits on confirmation text.
func ContainsTextXPath(text string, opts Options) string {
	fragment := text
	if opts.CollapseWhitespace {
		n := NewNormalizer(Options{CollapseWhitespace: true})
		fragment = n.Normalize(fragment)
	}

	subject := "normalize-space(.)"
	literal := xpathLiteral(fragment)

	if opts.CaseInsensitive {
		subject = fmt.Sprintf("translate(%s, '%s', '%s')", subject, asciiUpper, asciiLower)
		literal = xpathLiteral(strings.ToLower(fragment))
	}

	return fmt.Sprintf("//*[contains(%s, %s)][not(self::script or self::style)]", subject, literal)
}

// JSTextPredicate returns the source of a JavaScript function taking no
// arguments and returning true once the page's visible text contains the
// expected fragment under the same normalization rules the Go side uses.
// The page may rewrite its DOM at any time, so the predicate re-reads
// document.body on every poll.
func JSTextPredicate(text string, opts Options) string {
	var b strings.Builder

	b.WriteString("function() {\n")
	b.WriteString("\tconst norm = function(s) {\n")
	b.WriteString("\t\tlet t = String(s);\n")
	if opts.UnicodeNormalize {
		b.WriteString("\t\tt = t.normalize('NFC');\n")
	}
	if opts.CollapseWhitespace {
		b.WriteString("\t\tt = t.replace(/\\s+/g, ' ').trim();\n")
	}
	if opts.CaseInsensitive {
		b.WriteString("\t\tt = t.toLowerCase();\n")
	}
	b.WriteString("\t\treturn t;\n")
	b.WriteString("\t};\n")
	b.WriteString("\tif (!document.body) { return false; }\n")
	fmt.Fprintf(&b, "\treturn norm(document.body.innerText).includes(norm(%s));\n", jsLiteral(text))
	b.WriteString("}")

	return b.String()
}

// xpathLiteral quotes a string for use inside an XPath expression. XPath 1.0
// has no escape syntax, so strings holding both quote kinds need concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}

	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if part != "" {
			quoted = append(quoted, "'"+part+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

// jsLiteral quotes a string as a JavaScript single-quoted literal.
func jsLiteral(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		"\n", `\n`,
		"\r", `\r`,
		"\u2028", `\u2028`,
		"\u2029", `\u2029`,
	)
	return "'" + replacer.Replace(s) + "'"
}
