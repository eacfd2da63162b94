package resume

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/ByLCY/papyrus-cv/cv"
	"github.com/ByLCY/papyrus-cv/layout"
)

// stubTypesetter wraps on word boundaries assuming every rune is half the font size wide.
type stubTypesetter struct{}

func (stubTypesetter) LayoutLines(content string, width float64, _ layout.FontResource, fontSize, lineHeight float64, wrap string) ([]layout.TextLine, error) {
	charW := fontSize * 0.5
	measure := func(s string) float64 { return float64(utf8.RuneCountInString(s)) * charW }
	if wrap == "nowrap" {
		return []layout.TextLine{{Content: content, Width: measure(content), Height: lineHeight}}, nil
	}
	words := strings.Fields(content)
	if len(words) == 0 {
		return []layout.TextLine{{Height: lineHeight}}, nil
	}
	var lines []layout.TextLine
	cur := ""
	for _, word := range words {
		next := word
		if cur != "" {
			next = cur + " " + word
		}
		if cur != "" && measure(next) > width {
			lines = append(lines, layout.TextLine{Content: cur, Width: measure(cur), Height: lineHeight})
			cur = word
			continue
		}
		cur = next
	}
	lines = append(lines, layout.TextLine{Content: cur, Width: measure(cur), Height: lineHeight})
	return lines, nil
}

// stubFetcher serves a 1×1 image for known refs and fails for the rest.
type stubFetcher struct {
	mu    sync.Mutex
	known map[string]bool
	calls []string
}

func newStubFetcher(refs ...string) *stubFetcher {
	f := &stubFetcher{known: map[string]bool{}}
	for _, r := range refs {
		f.known[r] = true
	}
	return f
}

func (f *stubFetcher) Fetch(_ context.Context, ref string) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ref)
	if !f.known[ref] {
		return nil, fmt.Errorf("stub: %s not found", ref)
	}
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

func (f *stubFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type placedText struct {
	Page int
	layout.TextBox
}

func textsByRole(res *layout.Result, role string) []placedText {
	var out []placedText
	for i, p := range res.Pages {
		for _, tb := range p.Texts {
			if role == "" || tb.Role == role {
				out = append(out, placedText{Page: i, TextBox: tb})
			}
		}
	}
	return out
}

func imagesByRole(res *layout.Result, role string) []layout.ImageBox {
	var out []layout.ImageBox
	for _, p := range res.Pages {
		for _, img := range p.Images {
			if role == "" || img.Role == role {
				out = append(out, img)
			}
		}
	}
	return out
}

func baseCV() cv.CV {
	return cv.CV{
		Personal: cv.Personal{
			Name:     "Jane Doe",
			Title:    "Senior Backend Engineer",
			Email:    "jane@example.com",
			Phone:    "+31 6 1234 5678",
			Location: "Utrecht",
			GitHub:   "github.com/janedoe",
		},
		Summary: "Backend engineer with ten years of experience building reliable distributed systems and developer tooling.",
		Skills: []cv.SkillCategory{
			{Category: "Languages", Items: []string{"Go", "Rust", "TypeScript"}},
			{Category: "Infrastructure", Items: []string{"Kubernetes", "Terraform", "PostgreSQL"}},
		},
		Experience: []cv.Experience{experienceEntry(1, 3, 4)},
		Education: []cv.Education{
			{Degree: "MSc Computer Science", Institution: "Utrecht University", Period: "2010 - 2012"},
		},
	}
}

func experienceEntry(n, achievements, techs int) cv.Experience {
	e := cv.Experience{
		Title:       fmt.Sprintf("Engineer %d", n),
		Company:     fmt.Sprintf("Company %d", n),
		Location:    "Amsterdam",
		Period:      "2019 - 2023",
		Description: "Owned the payments platform and led a team of five engineers.",
	}
	for i := 0; i < achievements; i++ {
		e.Achievements = append(e.Achievements, fmt.Sprintf("Delivered improvement number %d that cut latency by a noticeable margin", i+1))
	}
	for i := 0; i < techs; i++ {
		e.Technologies = append(e.Technologies, fmt.Sprintf("Tech%02d", i+1))
	}
	return e
}
