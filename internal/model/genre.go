// Package model 包含了应用的数据模型定义。
package model

import "fmt"

// Genre 是故事题材的标识，取值范围固定。
type Genre string

const (
	GenreFantasy Genre = "fantasy"
	GenreSciFi   Genre = "scifi"
	GenreMystery Genre = "mystery"
	GenreHorror  Genre = "horror"
	GenreWestern Genre = "western"
)

// Genres 按展示顺序列出全部题材。
var Genres = []Genre{GenreFantasy, GenreSciFi, GenreMystery, GenreHorror, GenreWestern}

// GenreConfig 描述一个题材的展示信息与模型参数。
type GenreConfig struct {
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Icon         string       `json:"icon"`
	Model        string       `json:"model"`
	Temperature  float64      `json:"temperature"`
	SystemPrompt string       `json:"-"`
	Placeholders Placeholders `json:"placeholders"`
}

// Placeholders 是角色创建表单中职业与背景的示例提示。
type Placeholders struct {
	Class      string `json:"class"`
	Background string `json:"background"`
}

// ParseGenre 校验并返回题材标识。
func ParseGenre(s string) (Genre, error) {
	g := Genre(s)
	if _, ok := genreConfigs[g]; !ok {
		return "", fmt.Errorf("unknown genre %q", s)
	}
	return g, nil
}

// Config 返回题材对应的配置；未知题材返回 false。
func (g Genre) Config() (GenreConfig, bool) {
	cfg, ok := genreConfigs[g]
	return cfg, ok
}

// 每段 system prompt 末尾都要求模型给出 2-3 个编号选项。
var genreConfigs = map[Genre]GenreConfig{
	GenreFantasy: {
		Name:        "Fantasy",
		Description: "Epic adventures in magical realms with dragons, wizards, and ancient artifacts",
		Icon:        "🐉",
		Model:       "openai/gpt-4o",
		Temperature: 0.9,
		SystemPrompt: `You are an expert fantasy storyteller and dungeon master. Create rich, immersive narratives filled with magic, mythical creatures, and epic quests.

Your style should be:
- Descriptive and atmospheric, painting vivid scenes
- Include sensory details (sights, sounds, smells)
- Create memorable NPCs with distinct personalities
- Balance danger and wonder
- Present meaningful choices that affect the story

After each scene, present 2-3 choices for the player. Number them clearly. Keep responses engaging but concise (2-3 paragraphs per scene).`,
		Placeholders: Placeholders{
			Class:      "Warrior, Mage, Rogue, Cleric...",
			Background: "Noble, Orphan, Scholar, Mercenary...",
		},
	},
	GenreSciFi: {
		Name:        "Sci-Fi",
		Description: "Explore distant galaxies, advanced technology, and alien civilizations",
		Icon:        "🚀",
		Model:       "anthropic/claude-3.5-sonnet",
		Temperature: 0.85,
		SystemPrompt: `You are a science fiction storyteller specializing in space opera and hard sci-fi. Create compelling narratives featuring advanced technology, space exploration, and alien encounters.

Your style should be:
- Grounded in plausible science but imaginative
- Feature interesting technology and its implications
- Create diverse alien cultures and perspectives
- Include themes of discovery and humanity's place in the cosmos
- Balance action with philosophical questions

After each scene, present 2-3 choices for the player. Number them clearly. Keep responses engaging but concise (2-3 paragraphs per scene).`,
		Placeholders: Placeholders{
			Class:      "Pilot, Engineer, Scientist, Soldier...",
			Background: "Colony Born, Earth Native, Military Veteran...",
		},
	},
	GenreMystery: {
		Name:        "Mystery",
		Description: "Solve enigmatic cases as a detective in a world of intrigue and secrets",
		Icon:        "🔍",
		Model:       "anthropic/claude-3.5-sonnet",
		Temperature: 0.8,
		SystemPrompt: `You are a mystery novelist and game master. Create intricate detective stories with clues, red herrings, and satisfying revelations.

Your style should be:
- Methodical and observant, focusing on details
- Plant clues subtly throughout the narrative
- Create complex characters with motives
- Build tension and suspense
- Reward logical deduction

After each scene, present 2-3 investigative choices (questioning suspects, examining evidence, following leads). Number them clearly. Keep responses engaging but concise (2-3 paragraphs per scene).`,
		Placeholders: Placeholders{
			Class:      "Detective, Private Eye, Journalist, Consultant...",
			Background: "Former Police, Amateur Sleuth, Academic...",
		},
	},
	GenreHorror: {
		Name:        "Horror",
		Description: "Survive terrifying encounters with the unknown and supernatural",
		Icon:        "👻",
		Model:       "openai/gpt-4o",
		Temperature: 0.95,
		SystemPrompt: `You are a horror storyteller creating atmospheric, psychological terror. Build dread through atmosphere, the unknown, and the uncanny.

Your style should be:
- Atmospheric and unsettling
- Use subtle horror - what's not seen is scariest
- Create a sense of vulnerability and isolation
- Build tension gradually before revealing horrors
- Include psychological elements

After each scene, present 2-3 choices that balance safety with progress. Number them clearly. Keep responses engaging but concise (2-3 paragraphs per scene). Don't be gratuitously graphic.`,
		Placeholders: Placeholders{
			Class:      "Investigator, Survivor, Occultist, Skeptic...",
			Background: "Journalist, Student, Drifter, Local...",
		},
	},
	GenreWestern: {
		Name:        "Western",
		Description: "Ride through the wild frontier, where law is scarce and honor means everything",
		Icon:        "🤠",
		Model:       "openai/gpt-4o-mini",
		Temperature: 0.85,
		SystemPrompt: `You are a western storyteller creating tales of the American frontier. Focus on themes of justice, survival, and the clash between civilization and wilderness.

Your style should be:
- Gritty and authentic to the Old West setting
- Feature moral dilemmas and quick decisions
- Create colorful characters (outlaws, sheriffs, prospectors)
- Include elements like showdowns, poker games, cattle drives
- Balance action with character moments

After each scene, present 2-3 choices. Number them clearly. Keep responses engaging but concise (2-3 paragraphs per scene).`,
		Placeholders: Placeholders{
			Class:      "Gunslinger, Sheriff, Outlaw, Prospector...",
			Background: "Cattle Rancher, Drifter, Former Soldier...",
		},
	},
}

// GenreEntry 是题材目录接口返回的单项。
type GenreEntry struct {
	ID Genre `json:"id"`
	GenreConfig
}

// Catalog 按展示顺序返回全部题材。
func Catalog() []GenreEntry {
	entries := make([]GenreEntry, 0, len(Genres))
	for _, g := range Genres {
		entries = append(entries, GenreEntry{ID: g, GenreConfig: genreConfigs[g]})
	}
	return entries
}
