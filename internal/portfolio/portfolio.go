// Package portfolio generates a small static portfolio site from
// answers collected by the interactive wizard. Output is confined to
// the portfolio/ directory under the sandbox base.
package portfolio

import (
	"fmt"
	htmltemplate "html/template"
	"regexp"
	"strings"
	texttemplate "text/template"

	"github.com/shellward/shellward/internal/files"
)

// DirName is the output directory, relative to the sandbox base.
const DirName = "portfolio"

const (
	maxProjects    = 5
	defaultPrimary = "#0B3D91"
	defaultEmail   = "add-your-email@example.com"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Site holds the wizard answers that feed the templates.
type Site struct {
	Name     string
	Title    string
	Tagline  string
	Email    string
	Primary  string
	Projects []string
}

// Normalize fills defaults, clamps the project list, and replaces an
// invalid accent color with the default.
func (s *Site) Normalize() {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		s.Name = "Your Name"
	}
	s.Title = strings.TrimSpace(s.Title)
	if s.Title == "" {
		s.Title = "Backend Engineer"
	}
	s.Tagline = strings.TrimSpace(s.Tagline)
	if s.Tagline == "" {
		s.Tagline = "I build secure, reliable systems."
	}
	s.Email = strings.TrimSpace(s.Email)
	if s.Email == "" {
		s.Email = defaultEmail
	}
	if !hexColor.MatchString(strings.TrimSpace(s.Primary)) {
		s.Primary = defaultPrimary
	} else {
		s.Primary = strings.TrimSpace(s.Primary)
	}

	projects := make([]string, 0, maxProjects)
	for _, p := range s.Projects {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		projects = append(projects, p)
		if len(projects) == maxProjects {
			break
		}
	}
	if len(projects) == 0 {
		projects = []string{"Your first project"}
	}
	s.Projects = projects
}

var indexTemplate = htmltemplate.Must(htmltemplate.New("index").Parse(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Name}} | Portfolio</title>
  <link rel="stylesheet" href="styles.css">
</head>
<body>
  <header class="hero">
    <div class="hero-inner">
      <div class="kicker">Portfolio</div>
      <h1>{{.Name}}</h1>
      <p class="title">{{.Title}}</p>
      <p class="tagline">{{.Tagline}}</p>
      <div class="cta">
        <a class="btn" href="#projects">View Projects</a>
        <a class="btn btn-ghost" href="#contact">Contact</a>
      </div>
    </div>
  </header>

  <main class="wrap">
    <section id="projects" class="card">
      <h2>Projects</h2>
      <ul class="projects">
{{- range .Projects}}
        <li>{{.}}</li>
{{- end}}
      </ul>
    </section>

    <section id="about" class="card">
      <h2>About</h2>
      <p>This site was generated locally by shellward.</p>
    </section>

    <section id="contact" class="card">
      <h2>Contact</h2>
      <p>Email: <span class="mono">{{.Email}}</span></p>
    </section>
  </main>

  <footer class="footer">Generated by shellward</footer>
  <script src="script.js"></script>
</body>
</html>
`))

var stylesTemplate = texttemplate.Must(texttemplate.New("styles").Parse(`:root {
  --bg: #0b0f16;
  --fg: #e9eef6;
  --muted: rgba(233,238,246,0.7);
  --card: rgba(255,255,255,0.06);
  --border: rgba(255,255,255,0.14);
  --accent: {{.Primary}};
}

* { box-sizing: border-box; }

body {
  margin: 0;
  font-family: ui-sans-serif, system-ui, -apple-system, Segoe UI, Roboto, Arial, sans-serif;
  color: var(--fg);
  background:
    radial-gradient(900px 500px at 20% 10%, rgba(11,61,145,0.35), transparent 60%),
    radial-gradient(900px 500px at 80% 30%, rgba(0,160,180,0.25), transparent 60%),
    var(--bg);
}

.hero { padding: 56px 18px 28px; }
.hero-inner { max-width: 980px; margin: 0 auto; }
.kicker { display: inline-block; padding: 6px 10px; border: 1px solid var(--border); border-radius: 999px; background: rgba(0,0,0,0.18); font-size: 12px; letter-spacing: 0.08em; text-transform: uppercase; color: var(--muted); }

h1 { margin: 14px 0 4px; font-size: clamp(36px, 6vw, 62px); line-height: 1.05; }
.title { margin: 0; color: var(--muted); font-weight: 600; }
.tagline { margin: 14px 0 0; max-width: 68ch; opacity: 0.92; }

.cta { margin-top: 18px; display: flex; gap: 10px; flex-wrap: wrap; }
.btn { display: inline-block; padding: 10px 14px; border-radius: 10px; text-decoration: none; color: var(--fg); background: linear-gradient(135deg, rgba(255,255,255,0.10), rgba(255,255,255,0.04)); border: 1px solid var(--border); }
.btn-ghost { background: transparent; }

.wrap { max-width: 980px; margin: 0 auto; padding: 0 18px 48px; display: grid; gap: 14px; }
.card { border: 1px solid var(--border); background: var(--card); border-radius: 16px; padding: 18px; backdrop-filter: blur(6px); }

h2 { margin: 0 0 10px; font-size: 18px; }
.projects { margin: 0; padding-left: 18px; }

.mono { font-family: ui-monospace, SFMono-Regular, Menlo, Consolas, monospace; }
.footer { padding: 14px 18px 24px; text-align: center; color: var(--muted); }
`))

const scriptJS = `(function () {
  const links = document.querySelectorAll('a[href^="#"]');
  for (const a of links) {
    a.addEventListener('click', function (e) {
      const id = a.getAttribute('href');
      const el = document.querySelector(id);
      if (!el) return;
      e.preventDefault();
      el.scrollIntoView({ behavior: 'smooth', block: 'start' });
    });
  }
})();
`

const readmeMD = `# Portfolio

Generated by shellward.

Open ` + "`index.html`" + ` in a browser.
`

// Generate renders the site files into the portfolio directory under
// the sandbox, replacing existing files.
func Generate(ops *files.Ops, site Site) error {
	site.Normalize()

	var index strings.Builder
	if err := indexTemplate.Execute(&index, site); err != nil {
		return fmt.Errorf("rendering index: %w", err)
	}
	var styles strings.Builder
	if err := stylesTemplate.Execute(&styles, site); err != nil {
		return fmt.Errorf("rendering styles: %w", err)
	}

	if err := ops.Mkdir(DirName); err != nil {
		return err
	}
	outputs := []struct {
		name    string
		content string
	}{
		{"index.html", index.String()},
		{"styles.css", styles.String()},
		{"script.js", scriptJS},
		{"README.md", readmeMD},
	}
	for _, out := range outputs {
		if err := ops.WriteTextFile(DirName+"/"+out.name, out.content, true); err != nil {
			return fmt.Errorf("writing %s: %w", out.name, err)
		}
	}
	return nil
}
