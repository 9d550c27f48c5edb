package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/dpsim/internal/metrics"
	"github.com/san-kum/dpsim/internal/physics"
	"github.com/san-kum/dpsim/internal/sim"
)

type section int

const (
	sectionAbout section = iota
	sectionModel
	sectionResults
	numSections
)

var sectionNames = [numSections]string{"About", "Model & Equations", "Results"}

type chart int

const (
	chartTheta1 chart = iota
	chartTheta2
	chartEnergy
	numCharts
)

const replayFrames = 200

// Result is what the browser displays. Trajectory may be nil when nothing
// has been simulated yet.
type Result struct {
	Trajectory *sim.Trajectory
	Method     string
	RelTol     float64
	AbsTol     float64
}

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Browser is the Bubble Tea model of the result browser.
type Browser struct {
	result  Result
	summary metrics.Summary
	energy  metrics.EnergyReport

	section section
	chart   chart
	theme   int
	st      styles

	frame   int
	playing bool

	width, height int
}

func NewBrowser(res Result) Browser {
	b := Browser{result: res, width: 80, height: 24}
	b.st = newStyles(Themes[0])
	if traj := res.Trajectory; traj != nil && traj.Len() > 0 {
		b.summary = metrics.Summarize(traj)
		b.energy = metrics.ReportEnergy(traj, physics.NewDoublePendulum(traj.Params))
	}
	return b
}

func (b Browser) hasResult() bool {
	return b.result.Trajectory != nil && b.result.Trajectory.Len() > 0
}

func (b Browser) Init() tea.Cmd { return nil }

func (b Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width, b.height = msg.Width, msg.Height
	case tea.KeyMsg:
		return b.handleKey(msg)
	case TickMsg:
		if !b.playing || b.section != sectionResults {
			b.playing = false
			return b, nil
		}
		b.step(1)
		if b.frame == b.lastFrame() {
			b.playing = false
			return b, nil
		}
		return b, tick()
	}
	return b, nil
}

func (b Browser) handleKey(msg tea.KeyMsg) (Browser, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return b, tea.Quit
	case "tab", "right", "l":
		b.section = (b.section + 1) % numSections
	case "shift+tab", "left", "h":
		b.section = (b.section + numSections - 1) % numSections
	case "1", "2", "3":
		b.section = section(msg.String()[0] - '1')
	case "t":
		b.theme = (b.theme + 1) % len(Themes)
		b.st = newStyles(Themes[b.theme])
	case "c":
		b.chart = (b.chart + 1) % numCharts
	case "[":
		b.step(-1)
	case "]":
		b.step(1)
	case " ":
		if b.section == sectionResults && b.hasResult() {
			b.playing = !b.playing
			if b.playing {
				if b.frame == b.lastFrame() {
					b.frame = 0
				}
				return b, tick()
			}
		}
	}
	return b, nil
}

// lastFrame is the index of the final replay frame.
func (b Browser) lastFrame() int {
	if !b.hasResult() {
		return 0
	}
	return min(replayFrames, b.result.Trajectory.Len()) - 1
}

func (b *Browser) step(dir int) {
	b.frame = max(0, min(b.frame+dir, b.lastFrame()))
}

// sample maps the replay frame to a trajectory index.
func (b Browser) sample() int {
	last := b.lastFrame()
	if last == 0 {
		return 0
	}
	return b.frame * (b.result.Trajectory.Len() - 1) / last
}

func (b Browser) View() string {
	var s strings.Builder

	s.WriteString(b.st.header.Render("DOUBLE PENDULUM") + "\n")
	tabs := make([]string, numSections)
	for i, name := range sectionNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if section(i) == b.section {
			tabs[i] = b.st.tabActive.Render(label)
		} else {
			tabs[i] = b.st.tabIdle.Render(label)
		}
	}
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n\n")

	switch b.section {
	case sectionAbout:
		s.WriteString(b.aboutView())
	case sectionModel:
		s.WriteString(b.modelView())
	case sectionResults:
		s.WriteString(b.resultsView())
	}

	s.WriteString("\n" + b.st.hint.Render("tab: section  space: play  [ ]: step  c: chart  t: theme  q: quit") + "\n")
	return s.String()
}

func (b Browser) aboutView() string {
	var s strings.Builder
	s.WriteString(b.st.title.Render("What is simulated") + "\n")
	s.WriteString("Two rigid, massless rods swing from a fixed pivot, each carrying a point\n")
	s.WriteString("mass. There is no friction and no driving force.\n\n")
	s.WriteString(b.st.title.Render("Chaos") + "\n")
	s.WriteString("The equations are deterministic, yet two runs that start a hair apart\n")
	s.WriteString("separate exponentially once the angles are large. Small angles stay\n")
	s.WriteString("regular and close to two coupled harmonic oscillators.\n\n")
	s.WriteString(b.st.title.Render("Validation") + "\n")
	s.WriteString("Total mechanical energy must stay constant. Its spread over the run is\n")
	s.WriteString("reported on the Results page as a check on the integrator.\n")
	return s.String()
}

func (b Browser) row(label, value string) string {
	return b.st.label.Render(label) + b.st.value.Render(value) + "\n"
}

func (b Browser) modelView() string {
	var s strings.Builder
	s.WriteString(b.st.title.Render("Equations of motion") + "\n")
	s.WriteString(b.st.muted.Render(strings.Join([]string{
		"δ = θ2 - θ1",
		"D1 = (m1+m2)L1 - m2 L1 cos²δ,  D2 = (L2/L1) D1",
		"θ1'' = [m2 L1 ω1² sinδ cosδ + m2 g sinθ2 cosδ + m2 L2 ω2² sinδ - (m1+m2) g sinθ1] / D1",
		"θ2'' = [-m2 L2 ω2² sinδ cosδ + (m1+m2)(g sinθ1 cosδ - L1 ω1² sinδ - g sinθ2)] / D2",
	}, "\n")) + "\n\n")

	if !b.hasResult() {
		s.WriteString(b.st.warning.Render("Run the simulation first to see the parameters.") + "\n")
		return s.String()
	}

	traj := b.result.Trajectory
	p := traj.Params
	x0 := traj.Initial
	s.WriteString(b.st.title.Render("Initial state") + "\n")
	s.WriteString(b.row("[θ1, ω1, θ2, ω2]", fmt.Sprintf("[%.4f, %.4f, %.4f, %.4f]", x0[0], x0[1], x0[2], x0[3])))
	s.WriteString("\n" + b.st.title.Render("Parameters") + "\n")
	s.WriteString(b.row("m1, m2 (kg)", fmt.Sprintf("%.3g, %.3g", p.M1, p.M2)))
	s.WriteString(b.row("L1, L2 (m)", fmt.Sprintf("%.3g, %.3g", p.L1, p.L2)))
	s.WriteString(b.row("g (m/s²)", fmt.Sprintf("%.2f", physics.Gravity)))
	s.WriteString("\n" + b.st.title.Render("Solver") + "\n")
	s.WriteString(b.row("method", b.result.Method))
	s.WriteString(b.row("rtol, atol", fmt.Sprintf("%.0e, %.0e", b.result.RelTol, b.result.AbsTol)))
	s.WriteString(b.row("steps (rejected)", fmt.Sprintf("%d (%d)", traj.Stats.Steps, traj.Stats.Rejected)))
	s.WriteString(b.row("evaluations", fmt.Sprintf("%d", traj.Stats.Evaluations)))
	return s.String()
}

func (b Browser) resultsView() string {
	if !b.hasResult() {
		return b.st.warning.Render("Run the simulation first to view results.") + "\n"
	}
	traj := b.result.Trajectory

	var s strings.Builder
	s.WriteString(b.st.title.Render("Numerical summary") + "\n")
	s.WriteString(b.row("max θ1 (rad)", fmt.Sprintf("%.4f", b.summary.MaxTheta1)))
	s.WriteString(b.row("max θ2 (rad)", fmt.Sprintf("%.4f", b.summary.MaxTheta2)))
	s.WriteString(b.row("mean energy (J)", fmt.Sprintf("%.6f", b.summary.MeanEnergy)))
	s.WriteString(b.row("energy std dev (J)", fmt.Sprintf("%.3e", b.summary.EnergyStdDev)))
	s.WriteString(b.row("relative drift", fmt.Sprintf("%.3e", b.energy.RelMaxDrift)))
	s.WriteString(Separator(min(b.width, 60)) + "\n")

	data, caption := traj.Theta1, "θ1 (rad) vs time"
	switch b.chart {
	case chartTheta2:
		data, caption = traj.Theta2, "θ2 (rad) vs time"
	case chartEnergy:
		data, caption = traj.Energy, "total energy (J) vs time"
	}
	width := max(b.width-30, 20)
	s.WriteString(asciigraph.Plot(downsample(data, width),
		asciigraph.Height(8),
		asciigraph.Width(width),
		asciigraph.Caption(caption)) + "\n\n")

	i := b.sample()
	canvas := NewCanvas(24, 10)
	canvas.DrawPendulum(traj.X1[i], traj.Y1[i], traj.X2[i], traj.Y2[i], traj.Params.L1+traj.Params.L2)

	status := "paused"
	if b.playing {
		status = "playing"
	}
	info := b.row("t (s)", fmt.Sprintf("%.2f / %.2f", traj.T[i], traj.Duration())) +
		b.row("θ1, θ2 (rad)", fmt.Sprintf("%.3f, %.3f", traj.Theta1[i], traj.Theta2[i])) +
		b.row("energy (J)", fmt.Sprintf("%.6f", traj.Energy[i])) +
		b.row("replay", status) + "\n" +
		ProgressBar(float64(b.frame)/float64(max(b.lastFrame(), 1)), 30) + "\n" +
		SparklineChart(downsample(traj.Energy, 30), 30)

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, canvasStyle.Render(strings.TrimSuffix(canvas.String(), "\n")), "  ", info) + "\n")
	return s.String()
}
