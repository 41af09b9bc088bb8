package assets

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Meme - один мем из каталога.
type Meme struct {
	Name string // имя файла
	Path string // полный путь
}

var memeExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".mp4":  true,
	".mov":  true,
	".avi":  true,
}

// Доля пула, ниже которой список использованных мемов сбрасывается.
const resetFraction = 0.2

var defaultSituations = []string{
	"Когда ты опоздал на работу, но начальник тоже",
	"Когда пытаешься объяснить IT-специалисту, что 'у меня ничего не работает'",
}

// Pool раздает ситуации и мемы. Список использованных мемов общий для всех
// игр и защищен собственным мьютексом, он переживает рестарт через used-файл.
type Pool struct {
	memesDir       string
	situationsFile string
	usedFile       string

	mu   sync.Mutex
	used map[string]bool
}

func NewPool(memesDir, situationsFile, usedFile string) *Pool {
	p := &Pool{
		memesDir:       memesDir,
		situationsFile: situationsFile,
		usedFile:       usedFile,
		used:           make(map[string]bool),
	}

	if err := p.ensureFiles(); err != nil {
		log.Printf("Failed to prepare asset files: %v", err)
	}
	p.loadUsed()

	return p
}

func (p *Pool) ensureFiles() error {
	if err := os.MkdirAll(p.memesDir, 0o755); err != nil {
		return fmt.Errorf("create memes dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(p.usedFile), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// Если файла ситуаций нет, записываем стартовый набор.
	if _, err := os.Stat(p.situationsFile); os.IsNotExist(err) {
		content := strings.Join(defaultSituations, "\n") + "\n"
		if err := os.WriteFile(p.situationsFile, []byte(content), 0o644); err != nil {
			return fmt.Errorf("seed situations file: %w", err)
		}
	}
	return nil
}

// SampleSituations возвращает до n случайных ситуаций без повторов внутри выборки.
func (p *Pool) SampleSituations(n int) []string {
	situations := p.allSituations()
	if len(situations) == 0 {
		situations = append(situations, defaultSituations...)
	}

	rand.Shuffle(len(situations), func(i, j int) {
		situations[i], situations[j] = situations[j], situations[i]
	})
	if n > len(situations) {
		n = len(situations)
	}
	return situations[:n]
}

func (p *Pool) allSituations() []string {
	data, err := os.ReadFile(p.situationsFile)
	if err != nil {
		log.Printf("Failed to read situations file: %v", err)
		return nil
	}

	var situations []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			situations = append(situations, line)
		}
	}
	return situations
}

// AddSituation дописывает новую ситуацию в конец файла.
func (p *Pool) AddSituation(text string) error {
	f, err := os.OpenFile(p.situationsFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open situations file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(strings.TrimSpace(text) + "\n"); err != nil {
		return fmt.Errorf("append situation: %w", err)
	}
	return nil
}

// SampleMemes возвращает до n мемов, избегая недавно раздававшихся.
// Когда кандидатов остается меньше resetFraction от всего пула, список
// использованных сбрасывается. Если мемов все равно не хватает, остаток
// добирается повторами из полного пула - игра не должна останавливаться.
func (p *Pool) SampleMemes(n int) []Meme {
	all := p.allMemes()
	if len(all) == 0 {
		return standInMemes(n)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	candidates := p.unusedOf(all)
	if float64(len(candidates)) < resetFraction*float64(len(all)) {
		log.Printf("Meme pool nearly exhausted, resetting used list (%d of %d left)", len(candidates), len(all))
		p.used = make(map[string]bool)
		candidates = append([]Meme(nil), all...)
	}

	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	var selected []Meme
	if n <= len(candidates) {
		selected = candidates[:n]
	} else {
		selected = candidates
		// Повторы допустимы только здесь, когда уникальных мемов не хватает.
		for len(selected) < n {
			selected = append(selected, all[rand.Intn(len(all))])
		}
	}

	for _, m := range selected {
		p.used[m.Name] = true
	}
	p.saveUsed()

	return selected
}

func (p *Pool) unusedOf(all []Meme) []Meme {
	var out []Meme
	for _, m := range all {
		if !p.used[m.Name] {
			out = append(out, m)
		}
	}
	return out
}

func (p *Pool) allMemes() []Meme {
	entries, err := os.ReadDir(p.memesDir)
	if err != nil {
		log.Printf("Failed to read memes dir: %v", err)
		return nil
	}

	var memes []Meme
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if memeExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			memes = append(memes, Meme{
				Name: e.Name(),
				Path: filepath.Join(p.memesDir, e.Name()),
			})
		}
	}
	return memes
}

// ResetUsed очищает список использованных мемов.
func (p *Pool) ResetUsed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.used = make(map[string]bool)
	p.saveUsed()
}

// standInMemes - заглушки на случай пустого каталога, чтобы раунд не срывался.
func standInMemes(n int) []Meme {
	memes := make([]Meme, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("stub_%d.jpg", i)
		memes = append(memes, Meme{
			Name: name,
			Path: filepath.Join("assets", name),
		})
	}
	return memes
}

type usedFileFormat struct {
	UsedMemes []string `json:"used_memes"`
}

func (p *Pool) loadUsed() {
	data, err := os.ReadFile(p.usedFile)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Failed to load used memes: %v", err)
		}
		return
	}

	var f usedFileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		log.Printf("Failed to parse used memes file: %v", err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, name := range f.UsedMemes {
		p.used[name] = true
	}
}

// saveUsed вызывается под p.mu.
func (p *Pool) saveUsed() {
	f := usedFileFormat{UsedMemes: make([]string, 0, len(p.used))}
	for name := range p.used {
		f.UsedMemes = append(f.UsedMemes, name)
	}

	data, err := json.Marshal(f)
	if err != nil {
		log.Printf("Failed to encode used memes: %v", err)
		return
	}
	if err := os.WriteFile(p.usedFile, data, 0o644); err != nil {
		log.Printf("Failed to save used memes: %v", err)
	}
}
