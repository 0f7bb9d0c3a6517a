package content

import (
	"strings"
)

// CasterKind classifies spellcasting progression
type CasterKind int

const (
	NonCaster CasterKind = iota
	HalfCaster
	FullCaster
)

// ClassInfo is the static rules entry for a class
type ClassInfo struct {
	Name            string
	HitDie          int
	Primary         Ability
	Saves           [2]Ability
	Skills          []string
	Caster          CasterKind
	FirstSpellLevel int
	Features        []ClassFeature
	Aliases         []string
}

var classTable = []ClassInfo{
	{
		Name: "Barbarian", HitDie: 12, Primary: Strength, Saves: [2]Ability{Strength, Constitution},
		Skills:  []string{"Animal Handling", "Athletics", "Intimidation", "Nature", "Perception", "Survival"},
		Aliases: []string{"barbaro", "berserker"},
		Features: []ClassFeature{
			{"Rage", "Enter a battle fury for bonus damage and resistance to physical damage.", 1},
			{"Unarmored Defense", "AC equals 10 + Dexterity modifier + Constitution modifier without armor.", 1},
			{"Reckless Attack", "Gain advantage on Strength attacks at the cost of granting advantage to enemies.", 2},
			{"Danger Sense", "Advantage on Dexterity saves against effects you can see.", 2},
			{"Primal Path", "Choose the path that shapes your rage.", 3},
			{"Extra Attack", "Attack twice when taking the Attack action.", 5},
			{"Fast Movement", "Speed increases by 10 feet without heavy armor.", 5},
			{"Feral Instinct", "Advantage on initiative rolls.", 7},
			{"Brutal Critical", "Roll one additional weapon damage die on a critical hit.", 9},
			{"Relentless Rage", "Drop to 1 hit point instead of 0 while raging on a successful save.", 11},
			{"Persistent Rage", "Rage ends early only if you fall unconscious or choose to end it.", 15},
			{"Indomitable Might", "Use your Strength score in place of low Strength check totals.", 18},
			{"Primal Champion", "Strength and Constitution increase by 4.", 20},
		},
	},
	{
		Name: "Bard", HitDie: 8, Primary: Charisma, Saves: [2]Ability{Dexterity, Charisma},
		Skills: SkillNames(), Caster: FullCaster, FirstSpellLevel: 1,
		Aliases: []string{"bardo", "trovador", "menestrel"},
		Features: []ClassFeature{
			{"Spellcasting", "Cast bard spells using Charisma.", 1},
			{"Bardic Inspiration", "Grant an ally a die to add to a roll.", 1},
			{"Jack of All Trades", "Add half proficiency to ability checks you are not proficient in.", 2},
			{"Song of Rest", "Allies regain extra hit points during a short rest.", 2},
			{"Bard College", "Join a college that grants additional features.", 3},
			{"Expertise", "Double proficiency bonus for two chosen skills.", 3},
			{"Font of Inspiration", "Regain Bardic Inspiration on a short rest.", 5},
			{"Countercharm", "Use music to protect allies from fear and charm.", 6},
			{"Magical Secrets", "Learn spells from any class list.", 10},
			{"Superior Inspiration", "Regain one Bardic Inspiration when rolling initiative with none left.", 20},
		},
	},
	{
		Name: "Cleric", HitDie: 8, Primary: Wisdom, Saves: [2]Ability{Wisdom, Charisma},
		Skills: []string{"History", "Insight", "Medicine", "Persuasion", "Religion"}, Caster: FullCaster, FirstSpellLevel: 1,
		Aliases: []string{"clerigo", "sacerdote", "priest", "padre"},
		Features: []ClassFeature{
			{"Spellcasting", "Cast cleric spells using Wisdom.", 1},
			{"Divine Domain", "Choose a domain tied to your deity.", 1},
			{"Channel Divinity", "Channel divine energy for magical effects.", 2},
			{"Destroy Undead", "Turned undead of low challenge are destroyed.", 5},
			{"Divine Intervention", "Call on your deity to intervene on your behalf.", 10},
		},
	},
	{
		Name: "Druid", HitDie: 8, Primary: Wisdom, Saves: [2]Ability{Intelligence, Wisdom},
		Skills: []string{"Arcana", "Animal Handling", "Insight", "Medicine", "Nature", "Perception", "Religion", "Survival"},
		Caster: FullCaster, FirstSpellLevel: 1,
		Aliases: []string{"druida"},
		Features: []ClassFeature{
			{"Druidic", "Know the secret language of druids.", 1},
			{"Spellcasting", "Cast druid spells using Wisdom.", 1},
			{"Wild Shape", "Magically assume the shape of a beast.", 2},
			{"Druid Circle", "Join a circle of druids.", 2},
			{"Timeless Body", "Age ten times more slowly.", 18},
			{"Beast Spells", "Cast spells while in Wild Shape.", 18},
			{"Archdruid", "Use Wild Shape an unlimited number of times.", 20},
		},
	},
	{
		Name: "Fighter", HitDie: 10, Primary: Strength, Saves: [2]Ability{Strength, Constitution},
		Skills:  []string{"Acrobatics", "Animal Handling", "Athletics", "History", "Insight", "Intimidation", "Perception", "Survival"},
		Aliases: []string{"guerreiro", "guerrero", "warrior", "lutador", "combatiente", "luchador"},
		Features: []ClassFeature{
			{"Fighting Style", "Adopt a particular style of fighting as your specialty.", 1},
			{"Second Wind", "Regain hit points as a bonus action once per rest.", 1},
			{"Action Surge", "Take one additional action on your turn.", 2},
			{"Martial Archetype", "Choose an archetype that shapes your fighting techniques.", 3},
			{"Extra Attack", "Attack twice when taking the Attack action.", 5},
			{"Indomitable", "Reroll a failed saving throw.", 9},
		},
	},
	{
		Name: "Monk", HitDie: 8, Primary: Dexterity, Saves: [2]Ability{Strength, Dexterity},
		Skills:  []string{"Acrobatics", "Athletics", "History", "Insight", "Religion", "Stealth"},
		Aliases: []string{"monge", "monje"},
		Features: []ClassFeature{
			{"Unarmored Defense", "AC equals 10 + Dexterity modifier + Wisdom modifier without armor.", 1},
			{"Martial Arts", "Use Dexterity for unarmed strikes and monk weapons.", 1},
			{"Ki", "Harness ki points to fuel special techniques.", 2},
			{"Unarmored Movement", "Speed increases without armor or shield.", 2},
			{"Monastic Tradition", "Commit to a monastic tradition.", 3},
			{"Deflect Missiles", "Reduce damage from ranged weapon attacks.", 3},
			{"Slow Fall", "Reduce falling damage with your reaction.", 4},
			{"Extra Attack", "Attack twice when taking the Attack action.", 5},
			{"Stunning Strike", "Spend ki to stun a creature you hit.", 5},
			{"Evasion", "Take no damage on successful Dexterity saves against area effects.", 7},
			{"Stillness of Mind", "End charm or fear effects on yourself.", 7},
			{"Purity of Body", "Immune to disease and poison.", 10},
			{"Diamond Soul", "Proficiency in all saving throws.", 14},
			{"Perfect Self", "Regain ki when rolling initiative with none left.", 20},
		},
	},
	{
		Name: "Paladin", HitDie: 10, Primary: Strength, Saves: [2]Ability{Wisdom, Charisma},
		Skills: []string{"Athletics", "Insight", "Intimidation", "Medicine", "Persuasion", "Religion"}, Caster: HalfCaster, FirstSpellLevel: 2,
		Aliases: []string{"paladino", "paladin"},
		Features: []ClassFeature{
			{"Divine Sense", "Detect celestials, fiends and undead nearby.", 1},
			{"Lay on Hands", "Heal wounds from a pool of healing power.", 1},
			{"Fighting Style", "Adopt a particular style of fighting.", 2},
			{"Spellcasting", "Cast paladin spells using Charisma.", 2},
			{"Divine Smite", "Expend a spell slot to deal radiant damage on a hit.", 2},
			{"Sacred Oath", "Swear an oath that binds you as a paladin.", 3},
			{"Extra Attack", "Attack twice when taking the Attack action.", 5},
			{"Aura of Protection", "Allies nearby add your Charisma modifier to saves.", 6},
			{"Aura of Courage", "You and nearby allies cannot be frightened.", 10},
			{"Improved Divine Smite", "Melee weapon hits deal extra radiant damage.", 11},
		},
	},
	{
		Name: "Ranger", HitDie: 10, Primary: Dexterity, Saves: [2]Ability{Strength, Dexterity},
		Skills: []string{"Animal Handling", "Athletics", "Insight", "Investigation", "Nature", "Perception", "Stealth", "Survival"},
		Caster: HalfCaster, FirstSpellLevel: 2,
		Aliases: []string{"patrulheiro", "explorador", "guardabosques", "cacador", "cazador"},
		Features: []ClassFeature{
			{"Favored Enemy", "Advantage on tracking and recalling lore about a chosen enemy type.", 1},
			{"Natural Explorer", "Expertise in navigating a favored terrain.", 1},
			{"Fighting Style", "Adopt a particular style of fighting.", 2},
			{"Spellcasting", "Cast ranger spells using Wisdom.", 2},
			{"Ranger Archetype", "Choose an archetype that defines your hunting.", 3},
			{"Primeval Awareness", "Sense the presence of certain creature types.", 3},
			{"Extra Attack", "Attack twice when taking the Attack action.", 5},
			{"Land's Stride", "Move through nonmagical difficult terrain freely.", 8},
			{"Hide in Plain Sight", "Camouflage yourself to gain a bonus to Stealth.", 10},
			{"Vanish", "Hide as a bonus action and cannot be tracked nonmagically.", 14},
			{"Feral Senses", "Perceive invisible creatures nearby.", 18},
			{"Foe Slayer", "Add Wisdom to attack or damage against favored enemies.", 20},
		},
	},
	{
		Name: "Rogue", HitDie: 8, Primary: Dexterity, Saves: [2]Ability{Dexterity, Intelligence},
		Skills:  []string{"Acrobatics", "Athletics", "Deception", "Insight", "Intimidation", "Investigation", "Perception", "Performance", "Persuasion", "Sleight of Hand", "Stealth"},
		Aliases: []string{"ladino", "picaro", "ladrao", "ladron", "thief", "assassin", "assassino", "asesino"},
		Features: []ClassFeature{
			{"Expertise", "Double proficiency bonus for two chosen skills.", 1},
			{"Sneak Attack", "Deal extra damage once per turn when you have advantage.", 1},
			{"Thieves' Cant", "Know the secret mix of dialect and jargon of thieves.", 1},
			{"Cunning Action", "Dash, Disengage or Hide as a bonus action.", 2},
			{"Roguish Archetype", "Choose an archetype that hones your abilities.", 3},
			{"Uncanny Dodge", "Halve the damage of an attack you can see.", 5},
			{"Evasion", "Take no damage on successful Dexterity saves against area effects.", 7},
			{"Reliable Talent", "Treat low d20 rolls as 10 on proficient checks.", 11},
			{"Blindsense", "Sense hidden or invisible creatures nearby.", 14},
			{"Slippery Mind", "Gain proficiency in Wisdom saving throws.", 15},
			{"Elusive", "No attack roll has advantage against you.", 18},
			{"Stroke of Luck", "Turn a miss into a hit or a failed check into a 20.", 20},
		},
	},
	{
		Name: "Sorcerer", HitDie: 6, Primary: Charisma, Saves: [2]Ability{Constitution, Charisma},
		Skills: []string{"Arcana", "Deception", "Insight", "Intimidation", "Persuasion", "Religion"}, Caster: FullCaster, FirstSpellLevel: 1,
		Aliases: []string{"feiticeiro", "hechicero", "brujo de sangre"},
		Features: []ClassFeature{
			{"Spellcasting", "Cast sorcerer spells using Charisma.", 1},
			{"Sorcerous Origin", "Your innate magic comes from a particular origin.", 1},
			{"Font of Magic", "Use sorcery points to fuel your magic.", 2},
			{"Metamagic", "Twist your spells to suit your needs.", 3},
			{"Sorcerous Restoration", "Regain sorcery points on a short rest.", 20},
		},
	},
	{
		Name: "Warlock", HitDie: 8, Primary: Charisma, Saves: [2]Ability{Wisdom, Charisma},
		Skills: []string{"Arcana", "Deception", "History", "Intimidation", "Investigation", "Nature", "Religion"}, Caster: FullCaster, FirstSpellLevel: 1,
		Aliases: []string{"bruxo", "brujo", "pactario"},
		Features: []ClassFeature{
			{"Otherworldly Patron", "Strike a bargain with an otherworldly being.", 1},
			{"Pact Magic", "Cast warlock spells using Charisma with short-rest slots.", 1},
			{"Eldritch Invocations", "Learn fragments of forbidden knowledge.", 2},
			{"Pact Boon", "Receive a gift from your patron.", 3},
			{"Mystic Arcanum", "Cast a high level spell once per long rest.", 11},
			{"Eldritch Master", "Regain all Pact Magic slots once per long rest.", 20},
		},
	},
	{
		Name: "Wizard", HitDie: 6, Primary: Intelligence, Saves: [2]Ability{Intelligence, Wisdom},
		Skills: []string{"Arcana", "History", "Insight", "Investigation", "Medicine", "Religion"}, Caster: FullCaster, FirstSpellLevel: 1,
		Aliases: []string{"mago", "feiticeiro arcano", "hechicero arcano", "mage", "arcanista"},
		Features: []ClassFeature{
			{"Spellcasting", "Cast wizard spells from a spellbook using Intelligence.", 1},
			{"Arcane Recovery", "Recover expended spell slots during a short rest.", 1},
			{"Arcane Tradition", "Choose a school of magic to specialize in.", 2},
			{"Spell Mastery", "Cast chosen low level spells at will.", 18},
			{"Signature Spells", "Cast two chosen 3rd-level spells once per rest without a slot.", 20},
		},
	},
	{
		Name: "Artificer", HitDie: 8, Primary: Intelligence, Saves: [2]Ability{Constitution, Intelligence},
		Skills: []string{"Arcana", "History", "Investigation", "Medicine", "Nature", "Perception", "Sleight of Hand"}, Caster: HalfCaster, FirstSpellLevel: 1,
		Aliases: []string{"artifice", "inventor"},
		Features: []ClassFeature{
			{"Magical Tinkering", "Imbue tiny objects with minor magical properties.", 1},
			{"Spellcasting", "Cast artificer spells through tools using Intelligence.", 1},
			{"Infuse Item", "Infuse mundane items with magical infusions.", 2},
			{"Artificer Specialist", "Choose a specialty that shapes your craft.", 3},
			{"The Right Tool for the Job", "Magically create a set of artisan's tools.", 3},
			{"Tool Expertise", "Double proficiency bonus for tool checks.", 6},
			{"Flash of Genius", "Add Intelligence to an ally's check or save.", 7},
			{"Magic Item Adept", "Attune to more magic items and craft faster.", 10},
			{"Spell-Storing Item", "Store a spell in an item for others to use.", 11},
			{"Soul of Artifice", "Gain a bonus to saves per attuned item.", 20},
		},
	},
}

var classIndex = func() map[string]*ClassInfo {
	idx := make(map[string]*ClassInfo, len(classTable)*4)
	for i := range classTable {
		c := &classTable[i]
		idx[foldKey(c.Name)] = c
		for _, a := range c.Aliases {
			idx[foldKey(a)] = c
		}
	}
	return idx
}()

// ClassNames returns the canonical class names
func ClassNames() []string {
	names := make([]string, len(classTable))
	for i, c := range classTable {
		names[i] = c.Name
	}
	return names
}

// LookupClass resolves a class name or multilingual synonym
func LookupClass(name string) (*ClassInfo, bool) {
	c, ok := classIndex[foldKey(name)]
	return c, ok
}

// NormalizeClass returns the canonical English class name. Unknown names are
// returned trimmed and unchanged.
func NormalizeClass(name string) string {
	if c, ok := LookupClass(name); ok {
		return c.Name
	}
	return strings.TrimSpace(name)
}

// IsCaster reports whether the class casts spells at the given level
func (c *ClassInfo) IsCaster(level int) bool {
	return c.Caster != NonCaster && level >= c.FirstSpellLevel
}

// MaxSpellLevel returns the highest spell level castable, or -1 if none.
func (c *ClassInfo) MaxSpellLevel(level int) int {
	if !c.IsCaster(level) {
		return -1
	}
	switch c.Caster {
	case FullCaster:
		return min(9, ceilDiv(level, 2))
	case HalfCaster:
		return max(1, min(5, ceilDiv(level, 4)))
	}
	return -1
}

// HasCantrips reports whether the class learns level 0 spells
func (c *ClassInfo) HasCantrips() bool {
	return c.Caster == FullCaster || c.Name == "Artificer"
}

// SpellCount returns the inclusive range of spells a character of this class
// should know at the given level.
func (c *ClassInfo) SpellCount(level int) (lo, hi int) {
	switch {
	case !c.IsCaster(level):
		return 0, 0
	case c.Name == "Wizard":
		return 6, 10
	default:
		return 4, 8
	}
}

// FeaturesAt returns the mandatory features gained up to level
func (c *ClassInfo) FeaturesAt(level int) []ClassFeature {
	var out []ClassFeature
	for _, f := range c.Features {
		if f.Level <= level {
			out = append(out, f)
		}
	}
	return out
}

func ceilDiv(a, b int) int {
	return -floorDiv(-a, b)
}

// RaceInfo is the static rules entry for a race
type RaceInfo struct {
	Name   string
	Keys   []string
	Traits []string
}

// ordered so that more specific keys are tested first
var raceTable = []RaceInfo{
	{"Half-Elf", []string{"half elf", "meio elf", "semielfo", "semi elfo", "medio elfo"}, []string{"Darkvision", "Fey Ancestry", "Skill Versatility"}},
	{"Half-Orc", []string{"half orc", "meio orc", "semiorco", "semi orco", "orc"}, []string{"Darkvision", "Menacing", "Relentless Endurance", "Savage Attacks"}},
	{"Dragonborn", []string{"dragonborn", "draconato", "draconido", "draconico"}, []string{"Draconic Ancestry", "Breath Weapon", "Damage Resistance"}},
	{"Tiefling", []string{"tiefling", "tiferino", "tieflin"}, []string{"Darkvision", "Hellish Resistance", "Infernal Legacy"}},
	{"Halfling", []string{"halfling", "pequenino", "mediano", "hobbit"}, []string{"Lucky", "Brave", "Halfling Nimbleness"}},
	{"Gnome", []string{"gnome", "gnomo"}, []string{"Darkvision", "Gnome Cunning"}},
	{"Dwarf", []string{"dwarf", "anao", "enano"}, []string{"Darkvision", "Dwarven Resilience", "Dwarven Combat Training", "Stonecunning"}},
	{"Elf", []string{"elf", "elfo"}, []string{"Darkvision", "Keen Senses", "Fey Ancestry", "Trance"}},
	{"Human", []string{"human", "humano"}, []string{"Versatile", "Extra Language"}},
}

// RaceNames returns the canonical race names
func RaceNames() []string {
	names := make([]string, len(raceTable))
	for i, r := range raceTable {
		names[i] = r.Name
	}
	return names
}

// LookupRace matches a race by lowercase substring of its multilingual keys
func LookupRace(race string) (*RaceInfo, bool) {
	key := foldKey(race)
	if key == "" {
		return nil, false
	}
	for i := range raceTable {
		for _, k := range raceTable[i].Keys {
			if strings.Contains(key, k) {
				return &raceTable[i], true
			}
		}
	}
	return nil, false
}

// NormalizeRace returns the canonical race name, or the trimmed input
func NormalizeRace(race string) string {
	if r, ok := LookupRace(race); ok {
		return r.Name
	}
	return strings.TrimSpace(race)
}

// RacialTraits returns the canonical traits for a race, nil when unknown
func RacialTraits(race string) []string {
	r, ok := LookupRace(race)
	if !ok {
		return nil
	}
	return append([]string(nil), r.Traits...)
}

var backgroundTable = map[string][]string{
	"Acolyte":       {"acolito"},
	"Charlatan":     {"charlatao", "charlatan", "vigarista", "estafador"},
	"Criminal":      {"criminoso", "criminal", "bandido"},
	"Entertainer":   {"artista", "entretenedor", "animador", "performer", "saltimbanco"},
	"Folk Hero":     {"heroi do povo", "heroi popular", "heroe del pueblo", "heroe popular"},
	"Guild Artisan": {"artesao", "artesao de guilda", "artesano", "artesano gremial", "artisan"},
	"Hermit":        {"eremita", "ermitao", "ermitano"},
	"Noble":         {"nobre", "noble", "aristocrata"},
	"Outlander":     {"forasteiro", "forastero", "andarilho"},
	"Sage":          {"sabio", "erudito", "scholar"},
	"Sailor":        {"marinheiro", "marinero", "marujo", "pirata", "pirate"},
	"Soldier":       {"soldado", "militar"},
	"Urchin":        {"orfao", "pivete", "huerfano", "golfillo", "pillo"},
}

var backgroundIndex = func() map[string]string {
	idx := make(map[string]string, len(backgroundTable)*4)
	for name, aliases := range backgroundTable {
		idx[foldKey(name)] = name
		for _, a := range aliases {
			idx[foldKey(a)] = name
		}
	}
	return idx
}()

// NormalizeBackground returns the canonical background, or the trimmed input
func NormalizeBackground(bg string) string {
	if name, ok := backgroundIndex[foldKey(bg)]; ok {
		return name
	}
	return strings.TrimSpace(bg)
}

// BackgroundNames returns the canonical backgrounds
func BackgroundNames() []string {
	return []string{"Acolyte", "Charlatan", "Criminal", "Entertainer", "Folk Hero", "Guild Artisan",
		"Hermit", "Noble", "Outlander", "Sage", "Sailor", "Soldier", "Urchin"}
}
