package fetch

import (
	"net/url"
	"strings"
)

// Platform is a hosted job board whose pages need their own selectors.
type Platform string

const (
	PlatformGreenhouse Platform = "greenhouse"
	PlatformLever      Platform = "lever"
	PlatformWorkday    Platform = "workday"
	PlatformAshby      Platform = "ashby"
	PlatformUnknown    Platform = "unknown"
)

type boardProfile struct {
	platform Platform
	hosts    []string // matched as the host or a dot-separated suffix of it
	content  []string
	noise    []string
}

var boards = []boardProfile{
	{
		platform: PlatformGreenhouse,
		hosts:    []string{"greenhouse.io"},
		content:  []string{".job__description.body", ".job__description", ".job-description__content", "#content", ".job-post-container"},
		noise:    []string{".application--wrapper", ".voluntary-self-id", ".voluntary-self-id-wrapper", "#usa_self_id_section", ".post-apply"},
	},
	{
		platform: PlatformLever,
		hosts:    []string{"lever.co"},
		content:  []string{".posting-page", ".section-wrapper.page-full-width", ".posting-description", ".content"},
		noise:    []string{".apply-section", ".lever-application-form", ".posting-apply"},
	},
	{
		platform: PlatformWorkday,
		hosts:    []string{"workday.com", "myworkdayjobs.com"},
		content:  []string{"[data-automation-id='jobDescription']", ".gwt-HTML", ".job-description"},
		noise:    []string{"[data-automation-id='applyButton']", ".application-section"},
	},
	{
		platform: PlatformAshby,
		hosts:    []string{"ashbyhq.com"},
		content:  []string{"[class*='descriptionText']", "main"},
		noise:    []string{"[class*='applicationForm']", "[class*='navRoot']"},
	},
}

// commonNoise is stripped from postings on every board. Navigation is
// removed by ExtractMainText itself.
var commonNoise = []string{
	"form",
	"#application-form",
	".application-form",
	".application--container",
	".apply-button-container",
	"[data-testid='application-form']",
	".voluntary-disclosure",
	".eeo-statement",
	".eeo-section",
	"[data-testid='eeo']",
	".legal-disclosure",
	".self-identification",
	".social-share",
	".share-buttons",
	".social-links",
	".cookie-banner",
	".cookie-consent",
	".gdpr-notice",
}

func hostMatches(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func profileFor(platform Platform) (boardProfile, bool) {
	for _, b := range boards {
		if b.platform == platform {
			return b, true
		}
	}
	return boardProfile{}, false
}

// DetectPlatform identifies the job board hosting urlStr.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformUnknown
	}
	host := strings.ToLower(parsed.Hostname())
	for _, b := range boards {
		for _, domain := range b.hosts {
			if hostMatches(host, domain) {
				return b.platform
			}
		}
	}
	return PlatformUnknown
}

// PlatformContentSelectors returns the description selectors for a board,
// most specific first. Unknown boards get the generic posting selectors.
func PlatformContentSelectors(platform Platform) []string {
	if b, ok := profileFor(platform); ok {
		return append([]string(nil), b.content...)
	}
	return JobPostingSelectors()
}

// PlatformNoiseSelectors returns the elements to strip before extracting a
// posting from a board.
func PlatformNoiseSelectors(platform Platform) []string {
	noise := append([]string(nil), commonNoise...)
	if b, ok := profileFor(platform); ok {
		noise = append(noise, b.noise...)
	}
	return noise
}
