package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/aymanbagabas/go-osc52/v2"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

type mainTab int

const (
	tabProjects mainTab = iota
	tabTerminals
	tabCoverage
	tabGit
	tabEnv
)

var tabNames = [...]string{"Projects", "Terminals", "Coverage", "Git", "Env"}

type focusArea int

const (
	focusList focusArea = iota
	focusOutput
)

type inputMode int

const (
	inputNone inputMode = iota
	inputRunAll
	inputScript
	inputCommit
	inputEnvVar
)

// gitPane selects what the git sidebar lists.
type gitPane int

const (
	gitLocal gitPane = iota
	gitRemote
	gitHub // GitLab projects, when configured
)

const tickInterval = 100 * time.Millisecond

type tickMsg time.Time

// projEntry flattens the projects sidebar: a project row, or one of its
// script rows when expanded.
type projEntry struct {
	Project int
	Script  string
}

type model struct {
	cfg      Config
	projects []*Project
	scanErr  error
	registry *SessionRegistry
	profile  EnvProfile
	envVars  map[string]string

	tab          mainTab
	focus        focusArea
	viewport     viewport.Model
	width        int
	height       int
	sidebarWidth int
	autoScroll   bool
	message      string
	showCheats   bool

	input     textinput.Model
	inputMode inputMode

	projSelected int
	expanded     map[int]bool
	projEntries  []projEntry

	gitProj      int
	gitPane      gitPane
	gitSel       int
	gitStatus    *GitStatus
	gitBranches  []string
	gitRemotes   []string
	gitLog       []CommitInfo
	gitlabList   []GitLabProject
	gitlab       *GitLabClient

	covSel int
	envSel int
}

func newModel(cfg Config) model {
	projects, err := ScanProjects(cfg.Root)

	profile := cfg.Profile()
	envVars, envErr := LoadEnv(cfg.Root, profile)
	if envVars == nil {
		envVars = map[string]string{}
	}

	ti := textinput.New()
	ti.CharLimit = 200

	m := model{
		cfg:        cfg,
		projects:   projects,
		scanErr:    err,
		registry:   NewSessionRegistry(),
		profile:    profile,
		envVars:    envVars,
		tab:        tabProjects,
		focus:      focusList,
		viewport:   viewport.New(0, 0),
		autoScroll: true,
		input:      ti,
		expanded:   make(map[int]bool),
	}
	if cfg.GitLabURL != "" {
		m.gitlab = NewGitLabClient(cfg.GitLabURL, cfg.GitLabToken)
	}
	if err != nil {
		m.message = fmt.Sprintf("scan error: %v", err)
	} else if envErr != nil {
		m.message = fmt.Sprintf("env error: %v", envErr)
	} else {
		m.message = fmt.Sprintf("%d project(s) under %s", len(projects), cfg.Root)
	}
	m.rebuildProjEntries()
	return m
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tickCmd()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		m.refreshViewport()
		return m, nil

	case tickMsg:
		if m.registry.Drain() && m.tab == tabTerminals {
			m.refreshViewport()
			if m.autoScroll {
				m.viewport.GotoBottom()
			}
		}
		return m, tickCmd()

	case tea.KeyMsg:
		if m.inputMode != inputNone {
			return m.updateInput(msg)
		}
		return m.updateKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.autoScroll = m.viewport.AtBottom()
		return m, cmd
	}

	return m, nil
}

func (m model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.inputMode = inputNone
		m.input.Blur()
		return m, nil
	case "enter":
		value := strings.TrimSpace(m.input.Value())
		mode := m.inputMode
		m.inputMode = inputNone
		m.input.Blur()
		m.submitInput(mode, value)
		m.refreshViewport()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) submitInput(mode inputMode, value string) {
	switch mode {
	case inputRunAll:
		m.runScriptEverywhere(value)
	case inputScript:
		m.setPlaceholderScript(value)
	case inputCommit:
		m.commitAll(value)
	case inputEnvVar:
		m.addEnvVar(value)
	}
}

func (m model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+z" {
		return m, tea.Suspend
	}
	if m.showCheats {
		switch key {
		case "esc", "q", "?":
			m.showCheats = false
			return m, nil
		case "ctrl+q", "ctrl+c":
			m.registry.StopAll()
			return m, tea.Quit
		}
		return m, nil
	}

	switch key {
	case "ctrl+q", "ctrl+c":
		m.registry.StopAll()
		return m, tea.Quit
	case "tab":
		m.tab = (m.tab + 1) % mainTab(len(tabNames))
		m.focus = focusList
		m.enterTab()
		return m, nil
	case "shift+tab":
		m.tab = (m.tab + mainTab(len(tabNames)) - 1) % mainTab(len(tabNames))
		m.focus = focusList
		m.enterTab()
		return m, nil
	case "ctrl+h":
		m.focus = focusList
		return m, nil
	case "ctrl+l":
		m.focus = focusOutput
		return m, nil
	case "?":
		m.showCheats = true
		return m, nil
	case "esc", "q":
		m.focus = focusList
		m.autoScroll = true
		m.viewport.GotoBottom()
		m.refreshViewport()
		return m, nil
	}

	if m.focus == focusOutput {
		switch key {
		case "g", "home":
			m.viewport.GotoTop()
			m.autoScroll = m.viewport.AtBottom()
			return m, nil
		case "G", "end":
			m.viewport.GotoBottom()
			m.autoScroll = true
			return m, nil
		default:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			m.autoScroll = m.viewport.AtBottom()
			return m, cmd
		}
	}

	switch m.tab {
	case tabProjects:
		return m.updateProjectsKey(key)
	case tabTerminals:
		return m.updateTerminalsKey(key)
	case tabCoverage:
		return m.updateCoverageKey(key)
	case tabGit:
		return m.updateGitKey(key)
	case tabEnv:
		return m.updateEnvKey(key)
	}
	return m, nil
}

// enterTab runs once when a tab gains focus.
func (m *model) enterTab() {
	switch m.tab {
	case tabGit:
		if m.gitStatus == nil {
			m.gitRefresh()
		}
	case tabTerminals:
		m.autoScroll = true
	}
	m.refreshViewport()
	m.viewport.GotoBottom()
}

// ---- Projects tab ----

func (m *model) rebuildProjEntries() {
	entries := make([]projEntry, 0, len(m.projects))
	for i, p := range m.projects {
		entries = append(entries, projEntry{Project: i})
		if m.expanded[i] {
			for _, s := range p.Scripts {
				entries = append(entries, projEntry{Project: i, Script: s.Name})
			}
		}
	}
	m.projEntries = entries
	if m.projSelected >= len(entries) {
		m.projSelected = len(entries) - 1
	}
	if m.projSelected < 0 {
		m.projSelected = 0
	}
}

func (m *model) selectedProjEntry() *projEntry {
	if len(m.projEntries) == 0 || m.projSelected < 0 || m.projSelected >= len(m.projEntries) {
		return nil
	}
	return &m.projEntries[m.projSelected]
}

func (m model) updateProjectsKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		m.projSelected = clampInt(m.projSelected-1, 0, maxInt(len(m.projEntries)-1, 0))
		m.refreshViewport()
	case "down", "j":
		m.projSelected = clampInt(m.projSelected+1, 0, maxInt(len(m.projEntries)-1, 0))
		m.refreshViewport()
	case "right", "l":
		if e := m.selectedProjEntry(); e != nil && e.Script == "" {
			m.expanded[e.Project] = true
			m.rebuildProjEntries()
		}
	case "left", "h":
		if e := m.selectedProjEntry(); e != nil {
			if e.Script != "" {
				m.projSelected = m.projEntryIndex(e.Project)
			} else {
				m.expanded[e.Project] = false
				m.rebuildProjEntries()
			}
			m.refreshViewport()
		}
	case "enter":
		if e := m.selectedProjEntry(); e != nil {
			if e.Script == "" {
				m.expanded[e.Project] = !m.expanded[e.Project]
				m.rebuildProjEntries()
				return m, nil
			}
			m.startScript(m.projects[e.Project], e.Script)
		}
	case "a":
		m.openInput(inputRunAll, "script name (dev, build, test...)")
	case "R":
		m.rescanProjects()
	}
	return m, nil
}

func (m *model) projEntryIndex(project int) int {
	for i, e := range m.projEntries {
		if e.Project == project && e.Script == "" {
			return i
		}
	}
	return 0
}

func (m *model) rescanProjects() {
	projects, err := ScanProjects(m.cfg.Root)
	if err != nil {
		m.message = fmt.Sprintf("scan error: %v", err)
		return
	}
	m.projects = projects
	m.scanErr = nil
	m.expanded = make(map[int]bool)
	m.rebuildProjEntries()
	m.message = fmt.Sprintf("%d project(s) under %s", len(projects), m.cfg.Root)
	m.refreshViewport()
}

func (m *model) startScript(project *Project, script string) {
	if _, err := m.registry.Start(project, script, m.envVars); err != nil {
		m.message = err.Error()
		return
	}
	m.message = fmt.Sprintf("running %s in %s", script, project.Name)
	m.tab = tabTerminals
	m.enterTab()
}

// runScriptEverywhere starts the named script in every project declaring it.
func (m *model) runScriptEverywhere(script string) {
	if script == "" {
		m.message = "type a script name (e.g. dev, start)"
		return
	}
	started := 0
	for _, p := range m.projects {
		if !p.HasScript(script) {
			continue
		}
		if _, err := m.registry.Start(p, script, m.envVars); err == nil {
			started++
		}
	}
	if started == 0 {
		m.message = fmt.Sprintf("no project declares script %q", script)
		return
	}
	m.message = fmt.Sprintf("running %s in %d project(s)", script, started)
	m.tab = tabTerminals
	m.enterTab()
}

// ---- Terminals tab ----

func (m model) updateTerminalsKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		m.registry.Select(m.registry.Selected() - 1)
		m.autoScroll = true
		m.refreshViewport()
		m.viewport.GotoBottom()
	case "down", "j":
		m.registry.Select(m.registry.Selected() + 1)
		m.autoScroll = true
		m.refreshViewport()
		m.viewport.GotoBottom()
	case "s":
		m.registry.Stop(m.registry.Selected())
		m.refreshViewport()
	case "S":
		m.registry.StopAll()
		m.message = "stopped all sessions"
		m.refreshViewport()
	case "x":
		m.registry.Close(m.registry.Selected())
		m.refreshViewport()
	case "n":
		m.registry.AddPlaceholder()
		m.message = "pick a project (P) and script (E), then enter to run"
		m.refreshViewport()
	case "P":
		m.cyclePlaceholderProject(1)
	case "E":
		if s := m.registry.SelectedSession(); s != nil && s.State == StatePlaceholder {
			m.openInput(inputScript, "script name")
		}
	case "enter", "r":
		m.runOrRerunSelected()
	case "y":
		if s := m.registry.SelectedSession(); s != nil {
			return m, copyToClipboardCmd(plainSessionText(s))
		}
	}
	return m, nil
}

func (m *model) cyclePlaceholderProject(delta int) {
	s := m.registry.SelectedSession()
	if s == nil || s.State != StatePlaceholder || len(m.projects) == 0 {
		return
	}
	cur := -1
	if project, _, ok := s.Pending(); ok && project != nil {
		for i, p := range m.projects {
			if p == project {
				cur = i
				break
			}
		}
	}
	next := (cur + delta + len(m.projects)) % len(m.projects)
	script := ""
	if _, sc, ok := s.Pending(); ok {
		script = sc
	}
	if err := m.registry.SetPlaceholderTarget(m.registry.Selected(), m.projects[next], script); err != nil {
		m.message = err.Error()
		return
	}
	m.refreshViewport()
}

func (m *model) setPlaceholderScript(script string) {
	s := m.registry.SelectedSession()
	if s == nil || s.State != StatePlaceholder {
		return
	}
	project, _, _ := s.Pending()
	if err := m.registry.SetPlaceholderTarget(m.registry.Selected(), project, script); err != nil {
		m.message = err.Error()
	}
}

func (m *model) runOrRerunSelected() {
	s := m.registry.SelectedSession()
	if s == nil {
		return
	}
	var err error
	switch s.State {
	case StatePlaceholder:
		err = m.registry.RunPlaceholder(m.registry.Selected(), m.envVars)
	case StateFinished, StateStopped:
		err = m.registry.Rerun(m.registry.Selected(), m.envVars)
	default:
		return
	}
	if err != nil {
		m.message = err.Error()
		return
	}
	m.autoScroll = true
	m.refreshViewport()
	m.viewport.GotoBottom()
}

func plainSessionText(s *TerminalSession) string {
	lines := make([]string, 0, len(s.Lines))
	for _, line := range s.Lines {
		lines = append(lines, StripANSI(line))
	}
	return strings.Join(lines, "\n")
}

// ---- Coverage tab ----

func (m model) updateCoverageKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		m.covSel = clampInt(m.covSel-1, 0, maxInt(len(m.projects)-1, 0))
		m.refreshViewport()
	case "down", "j":
		m.covSel = clampInt(m.covSel+1, 0, maxInt(len(m.projects)-1, 0))
		m.refreshViewport()
	case "enter", "t":
		if p := m.coverageProject(); p != nil {
			if !p.HasScript(coverageScript) {
				m.message = fmt.Sprintf("%s has no %s script", p.Name, coverageScript)
				return m, nil
			}
			m.startScript(p, coverageScript)
		}
	case "o":
		if p := m.coverageProject(); p != nil {
			if !hasCoverageReport(p) {
				m.message = fmt.Sprintf("no report for %s yet; run the tests first", p.Name)
				return m, nil
			}
			if err := openCoverageReport(p); err != nil {
				m.message = err.Error()
				return m, nil
			}
			m.message = "opened coverage report for " + p.Name
		}
	}
	return m, nil
}

func (m model) coverageProject() *Project {
	if len(m.projects) == 0 {
		return nil
	}
	i := m.covSel
	if i < 0 || i >= len(m.projects) {
		i = 0
	}
	return m.projects[i]
}

// ---- Git tab ----

func (m *model) gitProject() *Project {
	if len(m.projects) == 0 {
		return nil
	}
	if m.gitProj < 0 || m.gitProj >= len(m.projects) {
		m.gitProj = 0
	}
	return m.projects[m.gitProj]
}

func (m *model) gitRefresh() {
	m.gitStatus = nil
	m.gitBranches = nil
	m.gitRemotes = nil
	m.gitLog = nil
	m.gitSel = 0
	project := m.gitProject()
	if project == nil {
		m.message = "no projects"
		return
	}
	repo, err := OpenRepo(project.Path)
	if err != nil {
		m.message = fmt.Sprintf("%s: %v", project.Name, err)
		return
	}
	status, err := repo.Status()
	if err != nil {
		m.message = err.Error()
		return
	}
	m.gitStatus = &status
	if branches, err := repo.Branches(); err == nil {
		m.gitBranches = branches
	}
	if remotes, err := repo.RemoteBranches(); err == nil {
		m.gitRemotes = remotes
	}
	if log, err := repo.Log(30); err == nil {
		m.gitLog = log
	}
}

func (m *model) gitRepo() *GitRepo {
	project := m.gitProject()
	if project == nil {
		return nil
	}
	repo, err := OpenRepo(project.Path)
	if err != nil {
		m.message = fmt.Sprintf("%s: %v", project.Name, err)
		return nil
	}
	return repo
}

func (m model) gitList() []string {
	switch m.gitPane {
	case gitRemote:
		return m.gitRemotes
	case gitHub:
		names := make([]string, 0, len(m.gitlabList))
		for _, p := range m.gitlabList {
			names = append(names, p.PathWithNamespace)
		}
		return names
	default:
		return m.gitBranches
	}
}

func (m model) updateGitKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		m.gitSel = clampInt(m.gitSel-1, 0, maxInt(len(m.gitList())-1, 0))
		m.refreshViewport()
	case "down", "j":
		m.gitSel = clampInt(m.gitSel+1, 0, maxInt(len(m.gitList())-1, 0))
		m.refreshViewport()
	case "left", "h":
		if len(m.projects) > 0 {
			m.gitProj = (m.gitProj + len(m.projects) - 1) % len(m.projects)
			m.gitRefresh()
			m.refreshViewport()
		}
	case "right", "l":
		if len(m.projects) > 0 {
			m.gitProj = (m.gitProj + 1) % len(m.projects)
			m.gitRefresh()
			m.refreshViewport()
		}
	case "o":
		m.gitPane = (m.gitPane + 1) % 3
		if m.gitPane == gitHub && m.gitlab == nil {
			m.gitPane = gitLocal
		}
		m.gitSel = 0
		m.refreshViewport()
	case "R":
		m.gitRefresh()
		m.refreshViewport()
	case "f":
		if repo := m.gitRepo(); repo != nil {
			if err := repo.Fetch(); err != nil {
				m.message = err.Error()
			} else {
				m.message = "fetched origin"
				m.gitRefresh()
			}
			m.refreshViewport()
		}
	case "p":
		if repo := m.gitRepo(); repo != nil {
			msg, err := repo.Pull()
			if err != nil {
				m.message = err.Error()
			} else {
				m.message = msg
				m.gitRefresh()
			}
			m.refreshViewport()
		}
	case "u":
		if repo := m.gitRepo(); repo != nil {
			msg, err := repo.Push()
			if err != nil {
				m.message = err.Error()
			} else {
				m.message = msg
			}
			m.refreshViewport()
		}
	case "t":
		if repo := m.gitRepo(); repo != nil {
			if err := repo.Stash(); err != nil {
				m.message = err.Error()
			} else {
				m.message = "stashed changes"
				m.gitRefresh()
			}
			m.refreshViewport()
		}
	case "T":
		if repo := m.gitRepo(); repo != nil {
			if err := repo.StashPop(); err != nil {
				m.message = err.Error()
			} else {
				m.message = "stash popped"
				m.gitRefresh()
			}
			m.refreshViewport()
		}
	case "c":
		m.openInput(inputCommit, "commit message")
	case "g":
		m.loadGitLabProjects()
	case "enter":
		m.gitCheckoutSelected()
	}
	return m, nil
}

func (m *model) commitAll(message string) {
	if message == "" {
		m.message = "commit message required"
		return
	}
	repo := m.gitRepo()
	if repo == nil {
		return
	}
	if err := repo.Commit(message, nil); err != nil {
		m.message = err.Error()
		return
	}
	m.message = "committed"
	m.gitRefresh()
}

func (m *model) loadGitLabProjects() {
	if m.gitlab == nil {
		m.message = "gitlab_url not configured"
		return
	}
	projects, err := m.gitlab.ListProjects("")
	if err != nil {
		m.message = err.Error()
		return
	}
	m.gitlabList = projects
	m.gitPane = gitHub
	m.gitSel = 0
	m.message = fmt.Sprintf("%d GitLab project(s)", len(projects))
	m.refreshViewport()
}

func (m *model) gitCheckoutSelected() {
	switch m.gitPane {
	case gitHub:
		m.cloneGitLabSelected()
		return
	case gitRemote:
		if m.gitSel < len(m.gitRemotes) {
			if repo := m.gitRepo(); repo != nil {
				if err := repo.CheckoutRemoteBranch(m.gitRemotes[m.gitSel]); err != nil {
					m.message = err.Error()
				} else {
					m.message = "checked out " + m.gitRemotes[m.gitSel]
					m.gitRefresh()
				}
			}
		}
	default:
		if m.gitSel < len(m.gitBranches) {
			if repo := m.gitRepo(); repo != nil {
				if err := repo.CheckoutBranch(m.gitBranches[m.gitSel]); err != nil {
					m.message = err.Error()
				} else {
					m.message = "checked out " + m.gitBranches[m.gitSel]
					m.gitRefresh()
				}
			}
		}
	}
	m.refreshViewport()
}

func (m *model) cloneGitLabSelected() {
	if m.gitlab == nil || m.gitSel >= len(m.gitlabList) {
		return
	}
	gl := m.gitlabList[m.gitSel]
	dest := filepath.Join(m.cfg.Root, filepath.Base(gl.PathWithNamespace))
	if _, err := os.Stat(dest); err == nil {
		m.message = fmt.Sprintf("%s already exists", dest)
		return
	}
	if _, err := CloneRepo(m.gitlab.CloneURLWithToken(gl.HTTPURLToRepo), dest); err != nil {
		m.message = err.Error()
		return
	}
	m.message = "cloned " + gl.PathWithNamespace
	m.rescanProjects()
}

// ---- Env tab ----

func (m model) updateEnvKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "up", "k":
		m.envSel = clampInt(m.envSel-1, 0, maxInt(len(m.envVars)-1, 0))
		m.refreshViewport()
	case "down", "j":
		m.envSel = clampInt(m.envSel+1, 0, maxInt(len(m.envVars)-1, 0))
		m.refreshViewport()
	case "1":
		m.switchProfile(EnvDev)
	case "2":
		m.switchProfile(EnvStaging)
	case "3":
		m.switchProfile(EnvProd)
	case "R":
		m.reloadEnv()
	case "e":
		m.openInput(inputEnvVar, "KEY=VALUE")
	case "d":
		m.deleteSelectedEnvVar()
	}
	return m, nil
}

func (m *model) switchProfile(p EnvProfile) {
	m.profile = p
	m.reloadEnv()
}

func (m *model) reloadEnv() {
	vars, err := LoadEnv(m.cfg.Root, m.profile)
	if err != nil {
		m.message = err.Error()
		return
	}
	m.envVars = vars
	m.envSel = 0
	m.message = fmt.Sprintf("%d var(s) for %s", len(vars), m.profile)
	m.refreshViewport()
}

func (m *model) addEnvVar(entry string) {
	key, value, ok := strings.Cut(entry, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		m.message = "use KEY=VALUE"
		return
	}
	m.envVars[key] = strings.TrimSpace(value)
	if err := SaveEnv(m.cfg.Root, m.profile, m.envVars); err != nil {
		m.message = err.Error()
		return
	}
	m.message = fmt.Sprintf("saved %s", m.profile.FileName())
}

func (m *model) deleteSelectedEnvVar() {
	keys := sortedKeys(m.envVars)
	if m.envSel >= len(keys) {
		return
	}
	delete(m.envVars, keys[m.envSel])
	if err := SaveEnv(m.cfg.Root, m.profile, m.envVars); err != nil {
		m.message = err.Error()
		return
	}
	m.envSel = clampInt(m.envSel, 0, maxInt(len(m.envVars)-1, 0))
	m.message = fmt.Sprintf("saved %s", m.profile.FileName())
	m.refreshViewport()
}

func sortedKeys(vars map[string]string) []string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ---- input helper ----

func (m *model) openInput(mode inputMode, placeholder string) {
	m.inputMode = mode
	m.input.Placeholder = placeholder
	m.input.SetValue("")
	m.input.Focus()
}

// ---- layout & rendering ----

func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	tabs := m.renderTabs()
	help := m.renderHelp()
	mainHeight := m.height - lipgloss.Height(help) - lipgloss.Height(tabs)
	if mainHeight < 1 {
		return help
	}

	sidebar := m.renderSidebar(mainHeight)
	output := m.renderOutput(mainHeight)
	main := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, output)

	view := lipgloss.JoinVertical(lipgloss.Left, tabs, main, help)
	base := fitView(view, m.width, m.height)
	if m.showCheats {
		return overlayView(base, m.renderCheatsheet())
	}
	return base
}

func (m *model) setSize(width, height int) {
	// Avoid writing to the bottom row, which can trigger terminal scroll.
	if height > 1 {
		height--
	}
	m.width = width
	m.height = height

	minPaneWidth := 20
	sidebarWidth := m.cfg.SidebarWidth
	if sidebarWidth < minPaneWidth {
		sidebarWidth = minPaneWidth
	}
	outputWidth := width - sidebarWidth
	if outputWidth < minPaneWidth {
		outputWidth = minPaneWidth
		sidebarWidth = width - outputWidth
		if sidebarWidth < 10 {
			sidebarWidth = 10
		}
	}
	m.sidebarWidth = sidebarWidth

	tabsHeight := 1
	helpHeight := lipgloss.Height(m.renderHelp())
	mainHeight := height - helpHeight - tabsHeight
	if mainHeight < 5 {
		mainHeight = 5
	}

	frameWidth, frameHeight := outputStyle.GetFrameSize()
	contentWidth := outputWidth - frameWidth
	contentHeight := mainHeight - frameHeight - 3
	if contentWidth < 10 {
		contentWidth = 10
	}
	if contentHeight < 1 {
		contentHeight = 1
	}

	innerWidth := contentWidth - 2
	if innerWidth < 1 {
		innerWidth = 1
	}
	m.viewport.Width = innerWidth
	m.viewport.Height = contentHeight
	m.input.Width = innerWidth - 2
}

func (m *model) refreshViewport() {
	content := m.outputContent()
	if content == "" {
		content = "No output yet."
	}
	m.viewport.SetContent(content)
}

func (m model) outputContent() string {
	switch m.tab {
	case tabProjects:
		return m.projectDetail()
	case tabTerminals:
		return m.terminalDetail()
	case tabCoverage:
		return m.coverageDetail()
	case tabGit:
		return m.gitDetail()
	case tabEnv:
		return m.envDetail()
	}
	return ""
}

func (m model) projectDetail() string {
	e := m.selectedProjEntry()
	if e == nil {
		if m.scanErr != nil {
			return fmt.Sprintf("scan error: %v", m.scanErr)
		}
		return "No projects found."
	}
	p := m.projects[e.Project]
	lines := []string{
		titleStyle.Render(p.Name),
		sectionStyle.Render(p.Path),
		fmt.Sprintf("package manager: %s", DetectPackageManager(p.Path)),
		"",
	}
	for _, s := range p.Scripts {
		marker := "  "
		if e.Script == s.Name {
			marker = "> "
		}
		lines = append(lines, fmt.Sprintf("%s%s — %s", marker, s.Name, sectionStyle.Render(s.Command)))
	}
	return strings.Join(lines, "\n")
}

func (m model) terminalDetail() string {
	s := m.registry.SelectedSession()
	if s == nil {
		return "No sessions. Start a script from the Projects tab, or press n for a new pane."
	}
	if s.State == StatePlaceholder {
		project, script, _ := s.Pending()
		projectName := "—"
		if project != nil {
			projectName = project.Name
		}
		if script == "" {
			script = "—"
		}
		return strings.Join([]string{
			titleStyle.Render("New session"),
			"",
			fmt.Sprintf("project: %s   (P cycles)", projectName),
			fmt.Sprintf("script:  %s   (E edits)", script),
			"",
			sectionStyle.Render("enter runs once both are set"),
		}, "\n")
	}
	rendered := make([]string, 0, len(s.Lines))
	for _, line := range s.Lines {
		rendered = append(rendered, renderTerminalLine(line))
	}
	return strings.Join(rendered, "\n")
}

func (m model) coverageDetail() string {
	p := m.coverageProject()
	if p == nil {
		return "No projects."
	}
	lines := []string{titleStyle.Render(p.Name), sectionStyle.Render(p.Path), ""}
	if p.HasScript(coverageScript) {
		lines = append(lines, fmt.Sprintf("%s script: %s", coverageScript, sectionStyle.Render(p.ScriptCommand(coverageScript))))
	} else {
		lines = append(lines, disabledStyle.Render(fmt.Sprintf("no %s script in the manifest", coverageScript)))
	}
	lines = append(lines, "", sectionStyle.Render("report: ")+coverageReportPath(p))
	if hasCoverageReport(p) {
		lines = append(lines, "report found — press o to open it in the browser")
	} else {
		lines = append(lines, disabledStyle.Render("no report yet; press t to run the tests"))
	}
	return strings.Join(lines, "\n")
}

func (m model) gitDetail() string {
	project := m.projectForGitDetail()
	if project == nil {
		return "No projects."
	}
	lines := []string{titleStyle.Render(project.Name), sectionStyle.Render(project.Path), ""}
	if m.gitStatus == nil {
		lines = append(lines, "Not a git repository (or not refreshed; press R).")
		return strings.Join(lines, "\n")
	}
	st := m.gitStatus
	clean := "dirty"
	if st.IsClean {
		clean = "clean"
	}
	lines = append(lines, fmt.Sprintf("branch %s (%s)", titleStyle.Render(st.Branch), clean))
	if len(st.Modified) > 0 {
		lines = append(lines, "", sectionStyle.Render("modified:"))
		for _, f := range st.Modified {
			lines = append(lines, "  "+f)
		}
	}
	if len(st.Untracked) > 0 {
		lines = append(lines, "", sectionStyle.Render("untracked:"))
		for _, f := range st.Untracked {
			lines = append(lines, "  "+f)
		}
	}
	if len(m.gitLog) > 0 {
		lines = append(lines, "", sectionStyle.Render("history:"))
		for _, c := range m.gitLog {
			lines = append(lines, fmt.Sprintf("  %s  %s  %s", modalKeyStyle.Render(c.ShortID), c.Date, c.Message))
		}
	}
	return strings.Join(lines, "\n")
}

func (m model) projectForGitDetail() *Project {
	if len(m.projects) == 0 {
		return nil
	}
	i := m.gitProj
	if i < 0 || i >= len(m.projects) {
		i = 0
	}
	return m.projects[i]
}

func (m model) envDetail() string {
	lines := []string{
		titleStyle.Render(fmt.Sprintf("Environment: %s", m.profile)),
		sectionStyle.Render(filepath.Join(m.cfg.Root, m.profile.FileName())),
		"",
	}
	keys := sortedKeys(m.envVars)
	if len(keys) == 0 {
		lines = append(lines, "No variables.")
	}
	for i, k := range keys {
		marker := "  "
		if i == m.envSel {
			marker = "> "
		}
		lines = append(lines, fmt.Sprintf("%s%s=%s", marker, k, m.envVars[k]))
	}
	lines = append(lines, "", sectionStyle.Render("these variables overlay every script run"))
	return strings.Join(lines, "\n")
}

func (m model) renderTabs() string {
	parts := make([]string, 0, len(tabNames))
	for i, name := range tabNames {
		if mainTab(i) == m.tab {
			parts = append(parts, activeTabStyle.Render(name))
		} else {
			parts = append(parts, tabStyle.Render(name))
		}
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	title := titleStyle.Render(" " + m.cfg.Title + " ")
	return fitWidth(lipgloss.JoinHorizontal(lipgloss.Top, title, row), m.width)
}

func (m model) renderSidebar(height int) string {
	width := m.sidebarWidth
	if width < 20 {
		width = 20
	}
	borderWidth, borderHeight := borderSize(sidebarStyle)
	contentWidth := width - borderWidth
	if contentWidth < 1 {
		contentWidth = 1
	}
	contentHeight := height - borderHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	var lines []string
	switch m.tab {
	case tabProjects:
		lines = m.projectsSidebar()
	case tabTerminals:
		lines = m.terminalsSidebar()
	case tabCoverage:
		lines = m.coverageSidebar()
	case tabGit:
		lines = m.gitSidebar()
	case tabEnv:
		lines = m.envSidebar()
	}

	content := strings.Join(lines, "\n")
	panel := sidebarStyle.Width(contentWidth).Height(contentHeight)
	if m.focus == focusList {
		panel = panel.BorderForeground(colorAccent)
	} else {
		panel = panel.BorderForeground(colorMuted)
	}
	return panel.Render(content)
}

func (m model) projectsSidebar() []string {
	lines := []string{sectionStyle.Render("Projects")}
	for i, e := range m.projEntries {
		var line string
		if e.Script == "" {
			p := m.projects[e.Project]
			marker := "▸"
			if m.expanded[e.Project] {
				marker = "▾"
			}
			line = fmt.Sprintf("%s %s", marker, p.Name)
		} else {
			line = "    " + e.Script
		}
		if i == m.projSelected {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	if len(m.projEntries) == 0 {
		lines = append(lines, disabledStyle.Render("(none found)"))
	}
	return lines
}

func (m model) terminalsSidebar() []string {
	lines := []string{sectionStyle.Render("Sessions")}
	for i, s := range m.registry.Sessions() {
		label := fmt.Sprintf("%s  %s", s.Name, sessionStateStyle(s.State).Render(sessionStateLabel(s.State)))
		if i == m.registry.Selected() {
			label = selectedStyle.Render(label)
		}
		lines = append(lines, label)
	}
	if m.registry.Len() == 0 {
		lines = append(lines, disabledStyle.Render("(no sessions)"))
	}
	return lines
}

func (m model) coverageSidebar() []string {
	lines := []string{sectionStyle.Render("Coverage")}
	for i, p := range m.projects {
		line := "  " + p.Name
		if hasCoverageReport(p) {
			line = "● " + p.Name
		}
		if !p.HasScript(coverageScript) {
			line = disabledStyle.Render(line)
		}
		if i == m.covSel {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	if len(m.projects) == 0 {
		lines = append(lines, disabledStyle.Render("(none found)"))
	}
	return lines
}

func (m model) gitSidebar() []string {
	header := "Branches"
	switch m.gitPane {
	case gitRemote:
		header = "Remote branches"
	case gitHub:
		header = "GitLab projects"
	}
	lines := []string{sectionStyle.Render(header)}
	list := m.gitList()
	for i, name := range list {
		var line string
		if m.gitStatus != nil && m.gitPane == gitLocal && name == m.gitStatus.Branch {
			line = "* " + name
		} else {
			line = "  " + name
		}
		if i == m.gitSel {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	if len(list) == 0 {
		lines = append(lines, disabledStyle.Render("(empty)"))
	}
	return lines
}

func (m model) envSidebar() []string {
	lines := []string{sectionStyle.Render("Profiles")}
	for i, p := range AllEnvProfiles {
		line := fmt.Sprintf("[%d] %s", i+1, p)
		if p == m.profile {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return lines
}

func (m model) renderOutput(height int) string {
	width := m.width - m.sidebarWidth
	if width < 20 {
		width = 20
	}
	borderWidth, borderHeight := borderSize(outputStyle)
	contentWidth := width - borderWidth
	if contentWidth < 1 {
		contentWidth = 1
	}
	contentHeight := height - borderHeight
	if contentHeight < 1 {
		contentHeight = 1
	}
	innerWidth := contentWidth - 2
	if innerWidth < 1 {
		innerWidth = 1
	}

	statusText := statusBarStyle.Width(contentWidth).Render(fitWidth(m.statusLine(), contentWidth))
	headerRow := outputContentStyle.Render(fitWidth(m.outputHeader(), innerWidth))

	body := m.viewport.View()
	if m.inputMode != inputNone {
		body = m.input.View() + "\n" + body
	}
	viewportRow := outputContentStyle.Render(body)

	content := strings.Join([]string{statusText, headerRow, viewportRow}, "\n")
	panel := outputStyle.Width(contentWidth).Height(contentHeight)
	if m.focus == focusOutput {
		panel = panel.BorderForeground(colorAccent)
	} else {
		panel = panel.BorderForeground(colorMuted)
	}
	return panel.Render(content)
}

func (m model) outputHeader() string {
	switch m.tab {
	case tabTerminals:
		if s := m.registry.SelectedSession(); s != nil {
			return fmt.Sprintf("%s — %s", s.Name, sessionStateLabel(s.State))
		}
		return "Terminals"
	case tabCoverage:
		if p := m.coverageProject(); p != nil {
			return fmt.Sprintf("Coverage: %s", p.Name)
		}
		return "Coverage"
	case tabGit:
		if p := m.projectForGitDetail(); p != nil {
			return fmt.Sprintf("Git: %s  (←/→ switch project)", p.Name)
		}
		return "Git"
	case tabEnv:
		return fmt.Sprintf("Env: %s", m.profile)
	default:
		if e := m.selectedProjEntry(); e != nil {
			return fmt.Sprintf("Project: %s", m.projects[e.Project].Name)
		}
		return "Projects"
	}
}

func (m model) statusLine() string {
	if m.message != "" {
		return m.message
	}
	return "ready"
}

func (m model) renderHelp() string {
	var help string
	switch m.tab {
	case tabProjects:
		help = "enter: run/expand  ·  a: run everywhere  ·  R: rescan  ·  tab: next tab  ·  ?: help  ·  ctrl+q: quit"
	case tabTerminals:
		help = "enter/r: run/rerun  ·  s: stop  ·  S: stop all  ·  x: close  ·  n: new pane  ·  y: copy  ·  tab: next tab  ·  ?: help"
	case tabCoverage:
		help = "t/enter: run tests  ·  o: open report  ·  tab: next tab  ·  ?: help  ·  ctrl+q: quit"
	case tabGit:
		help = "enter: checkout/clone  ·  o: pane  ·  f/p/u: fetch/pull/push  ·  c: commit  ·  t/T: stash/pop  ·  g: GitLab  ·  ?: help"
	case tabEnv:
		help = "1/2/3: profile  ·  e: set KEY=VALUE  ·  d: delete  ·  R: reload  ·  tab: next tab  ·  ?: help"
	}
	return helpStyle.Width(m.width).Render(help)
}

func (m model) renderCheatsheet() string {
	type cheatRow struct {
		key  string
		desc string
	}

	rows := []cheatRow{
		{"tab / shift+tab", "Next / previous tab"},
		{"↑/k ↓/j", "Move selection"},
		{"enter", "Run script · rerun session · checkout"},
		{"a", "Run a script in every project"},
		{"s / S", "Stop session / stop all"},
		{"x", "Close session"},
		{"n", "New placeholder pane"},
		{"P / E", "Placeholder: pick project / edit script"},
		{"y", "Copy session output"},
		{"t / o", "Coverage: run tests / open report"},
		{"f / p / u", "Git fetch / pull / push"},
		{"c", "Git commit (stage all)"},
		{"t / T", "Git stash / stash pop"},
		{"o", "Git pane: local / remote / GitLab"},
		{"1 2 3", "Env profile dev / staging / prod"},
		{"ctrl+h / ctrl+l", "Focus list / output"},
		{"g / G", "Scroll top / bottom (output)"},
		{"ctrl+z", "Suspend"},
		{"ctrl+q or ctrl+c", "Quit (stops everything)"},
	}

	keyWidth := 0
	for _, row := range rows {
		if w := ansi.StringWidth(row.key); w > keyWidth {
			keyWidth = w
		}
	}

	lines := []string{modalTitleStyle.Render("Hotkeys"), ""}
	for _, row := range rows {
		keyText := modalKeyStyle.Render(padRight(row.key, keyWidth))
		lines = append(lines, fmt.Sprintf("%s  %s", keyText, row.desc))
	}
	lines = append(lines, "", modalHintStyle.Render("Press ? or Esc to close"))

	body := strings.Join(lines, "\n")
	modal := modalStyle.Render(body)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal)
}

// ---- small helpers (shared across tabs) ----

func fitView(view string, width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	lines := strings.Split(view, "\n")
	for i, line := range lines {
		lines[i] = ansi.Truncate(line, width, "")
		if pad := width - ansi.StringWidth(lines[i]); pad > 0 {
			lines[i] = lines[i] + strings.Repeat(" ", pad)
		}
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	if len(lines) < height {
		padLine := strings.Repeat(" ", width)
		for len(lines) < height {
			lines = append(lines, padLine)
		}
	}
	return strings.Join(lines, "\n")
}

func fitWidth(line string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(line, width, "")
}

func borderSize(style lipgloss.Style) (int, int) {
	frameWidth, frameHeight := style.GetFrameSize()
	padTop, padRight, padBottom, padLeft := style.GetPadding()
	borderWidth := frameWidth - padLeft - padRight
	borderHeight := frameHeight - padTop - padBottom
	if borderWidth < 0 {
		borderWidth = 0
	}
	if borderHeight < 0 {
		borderHeight = 0
	}
	return borderWidth, borderHeight
}

func padRight(text string, width int) string {
	if width <= 0 {
		return text
	}
	pad := width - ansi.StringWidth(text)
	if pad <= 0 {
		return text
	}
	return text + strings.Repeat(" ", pad)
}

func overlayView(base, overlay string) string {
	baseLines := strings.Split(base, "\n")
	overlayLines := strings.Split(overlay, "\n")

	out := make([]string, len(baseLines))
	for i := range baseLines {
		if i >= len(overlayLines) {
			out[i] = baseLines[i]
			continue
		}
		line := overlayLines[i]
		if strings.TrimSpace(ansi.Strip(line)) == "" {
			out[i] = baseLines[i]
			continue
		}
		out[i] = line
	}
	return strings.Join(out, "\n")
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func copyToClipboardCmd(text string) tea.Cmd {
	return func() tea.Msg {
		if err := copyToSystemClipboard(text); err == nil {
			return nil
		}
		seq := osc52.New(text)
		term := strings.ToLower(os.Getenv("TERM"))
		if strings.Contains(term, "screen") || strings.Contains(term, "tmux") || os.Getenv("TMUX") != "" {
			seq = seq.Screen()
		}
		if os.Getenv("TERMDECK_OSC52_TMUX") == "1" {
			seq = seq.Tmux()
		}
		fmt.Fprint(os.Stderr, seq.String())
		return nil
	}
}

func copyToSystemClipboard(text string) error {
	switch runtime.GOOS {
	case "darwin":
		path, err := exec.LookPath("pbcopy")
		if err != nil {
			return err
		}
		cmd := exec.Command(path)
		cmd.Stdin = strings.NewReader(text)
		return cmd.Run()
	default:
		return fmt.Errorf("system clipboard unavailable")
	}
}
