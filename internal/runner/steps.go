// internal/runner/steps.go
package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/UIVerifier/internal/browser"
	"github.com/valpere/UIVerifier/internal/errors"
	"github.com/valpere/UIVerifier/internal/scenario"
	"github.com/valpere/UIVerifier/internal/textmatch"
	"github.com/valpere/UIVerifier/internal/utils"
	"github.com/valpere/UIVerifier/pkg/types"
)

// executeStep dispatches one step to the browser session. It returns a
// short human-readable detail for the step result and, for capture steps,
// the path of the artifact written.
func (e *Engine) executeStep(ctx context.Context, driver browser.Driver, sc *scenario.Scenario, step scenario.Step) (detail, artifact string, err error) {
	switch step.Type {
	case types.StepNavigate:
		url := step.URL
		if url == "" {
			url = sc.TargetURL
		}
		return url, "", driver.Navigate(ctx, url)

	case types.StepClickText:
		return step.Text, "", driver.ClickText(ctx, step.Text, sc.MatchFor(step))

	case types.StepClick:
		return step.Selector, "", driver.Click(ctx, step.Selector)

	case types.StepWaitText:
		return step.Text, "", driver.WaitText(ctx, step.Text, sc.MatchFor(step))

	case types.StepWaitElement:
		return step.Selector, "", driver.WaitVisible(ctx, step.Selector)

	case types.StepAssertText:
		return e.assertText(ctx, driver, sc, step)

	case types.StepAssertElement:
		return e.assertElement(ctx, driver, step)

	case types.StepScreenshot:
		data, err := driver.Screenshot(ctx, step.FullPage)
		if err != nil {
			return "", "", err
		}
		path, err := e.writeArtifact(sc, step.Path, data)
		if err != nil {
			return path, "", err
		}
		return path, path, nil

	case types.StepPDF:
		data, err := driver.PrintPDF(ctx)
		if err != nil {
			return "", "", err
		}
		path, err := e.writeArtifact(sc, step.Path, data)
		if err != nil {
			return path, "", err
		}
		return path, path, nil

	case types.StepEval:
		value, err := driver.Evaluate(ctx, step.Script)
		if err != nil {
			return "", "", err
		}
		return utils.TruncateString(fmt.Sprintf("%v", value), 120), "", nil

	case types.StepSleep:
		d := step.Duration.ToDuration()
		select {
		case <-ctx.Done():
			return "", "", ctx.Err()
		case <-time.After(d):
		}
		return d.String(), "", nil

	default:
		return "", "", errors.New(types.FailureConfig, "execute step",
			fmt.Sprintf("unsupported step type %q", step.Type))
	}
}

// assertText checks that the page, or the region the step selector
// narrows it to, contains the expected text under the step's match rules.
func (e *Engine) assertText(ctx context.Context, driver browser.Driver, sc *scenario.Scenario, step scenario.Step) (string, string, error) {
	doc, err := e.pageDocument(ctx, driver)
	if err != nil {
		return "", "", err
	}

	scope := doc.Find("body")
	if step.Selector != "" {
		scope = doc.Find(step.Selector)
		if scope.Length() == 0 {
			return "", "", errors.NewElementError(step.Selector,
				fmt.Errorf("no elements match the selector"))
		}
	}

	norm := textmatch.NewNormalizer(sc.MatchFor(step))
	if !norm.Contains(scope.Text(), step.Text) {
		return "", "", errors.New(types.FailureAssert, "assert text",
			fmt.Sprintf("text %q not found on the page", step.Text))
	}
	return fmt.Sprintf("found %q", step.Text), "", nil
}

// assertElement checks selector match counts. A zero expected count means
// at least one element must match; a positive count must match exactly.
func (e *Engine) assertElement(ctx context.Context, driver browser.Driver, step scenario.Step) (string, string, error) {
	doc, err := e.pageDocument(ctx, driver)
	if err != nil {
		return "", "", err
	}

	matches := doc.Find(step.Selector).Length()
	switch {
	case step.Count == 0 && matches == 0:
		return "", "", errors.New(types.FailureAssert, "assert element",
			fmt.Sprintf("no elements match %q", step.Selector))
	case step.Count > 0 && matches != step.Count:
		return "", "", errors.New(types.FailureAssert, "assert element",
			fmt.Sprintf("expected %d elements matching %q, found %d", step.Count, step.Selector, matches))
	}
	return fmt.Sprintf("%d elements match %q", matches, step.Selector), "", nil
}

// pageDocument pulls the current DOM out of the session and parses it for
// the assertion steps.
func (e *Engine) pageDocument(ctx context.Context, driver browser.Driver) (*goquery.Document, error) {
	html, err := driver.HTML(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, errors.Wrap(types.FailureInternal, "parse page", err)
	}
	return doc, nil
}
