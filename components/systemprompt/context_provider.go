package systemprompt

import "time"

// ContextProvider is an interface that defines the title and info of a context provider
type ContextProvider interface {
	Title() string
	Info() string
}

// StaticProvider is a ContextProvider with fixed content
type StaticProvider struct {
	title string
	info  string
}

var _ ContextProvider = (*StaticProvider)(nil)

func NewStaticProvider(title string, info string) *StaticProvider {
	return &StaticProvider{title: title, info: info}
}

func (p *StaticProvider) Title() string {
	return p.title
}

func (p *StaticProvider) Info() string {
	return p.info
}

// DateProvider provides the current date, so relative or partial dates can be resolved
type DateProvider struct {
	title  string
	layout string
	now    func() time.Time
}

var _ ContextProvider = (*DateProvider)(nil)

// NewDateProvider returns a DateProvider formatting dates with layout, time.DateOnly by default
func NewDateProvider(title string, layout string) *DateProvider {
	if layout == "" {
		layout = time.DateOnly
	}
	return &DateProvider{title: title, layout: layout, now: time.Now}
}

func (p *DateProvider) Title() string {
	return p.title
}

func (p *DateProvider) Info() string {
	return "The current date in the format " + p.layout + " is " + p.now().Format(p.layout) + "."
}
