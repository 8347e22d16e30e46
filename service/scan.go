package service

import (
	"fmt"
	"regexp"

	"github.com/tilnancy/pod-mod/constant"
	"github.com/tilnancy/pod-mod/dto"
)

// Scanner is the local pattern-matching path. It runs entirely offline and
// produces the ModerationResult shape; the live pipeline never consumes it.
type Scanner interface {
	Scan(transcript string) *dto.ModerationResult
}

type scanPattern struct {
	re       *regexp.Regexp
	category string
}

var (
	sensitivePatterns = []scanPattern{
		{regexp.MustCompile(`(?i)trigger`), "psychological"},
		{regexp.MustCompile(`(?i)addiction`), "health"},
		{regexp.MustCompile(`(?i)mental health`), "health"},
	}
	swearPatterns = []scanPattern{
		{regexp.MustCompile(`(?i)damn`), "mild"},
		{regexp.MustCompile(`(?i)hell`), "mild"},
		{regexp.MustCompile(`(?i)shit`), "moderate"},
	}
	slurPatterns = []scanPattern{
		{regexp.MustCompile(`(?i)inappropriate language`), "reference to slurs"},
	}
)

type scanner struct{}

func NewScanner() Scanner {
	return &scanner{}
}

func (s *scanner) Scan(transcript string) *dto.ModerationResult {
	sensitive := findInstances(sensitivePatterns, transcript)
	swear := findInstances(swearPatterns, transcript)
	slurs := findInstances(slurPatterns, transcript)

	overall := constant.SeverityLow
	for _, group := range [][]dto.ContentInstance{sensitive, swear, slurs} {
		for _, inst := range group {
			if inst.Severity.Rank() > overall.Rank() {
				overall = inst.Severity
			}
		}
	}

	summary := fmt.Sprintf(
		"Local scan found %d sensitive content reference(s), %d swear word(s) and %d slur reference(s); overall severity %s.",
		len(sensitive), len(swear), len(slurs), overall)

	return &dto.ModerationResult{
		Summary:          summary,
		SensitiveContent: dto.InstanceGroup{Found: len(sensitive) > 0, Count: len(sensitive), Instances: sensitive},
		SwearWords:       dto.InstanceGroup{Found: len(swear) > 0, Count: len(swear), Instances: swear},
		Slurs:            dto.InstanceGroup{Found: len(slurs) > 0, Count: len(slurs), Instances: slurs},
		OverallSeverity:  overall,
	}
}

func severityFor(category string) constant.Severity {
	switch category {
	case "mild":
		return constant.SeverityLow
	case "moderate":
		return constant.SeverityMedium
	default:
		return constant.SeverityHigh
	}
}

// findInstances records the first occurrence of each pattern with its
// character offset.
func findInstances(patterns []scanPattern, text string) []dto.ContentInstance {
	instances := []dto.ContentInstance{}
	for _, p := range patterns {
		loc := p.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		instances = append(instances, dto.ContentInstance{
			Text:     text[loc[0]:loc[1]],
			Position: loc[0],
			Severity: severityFor(p.category),
			Category: p.category,
		})
	}
	return instances
}
