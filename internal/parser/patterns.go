package parser

import (
	"regexp"
	"strings"
)

// Event types produced by the default pattern table.
const (
	TypePlayerBasic       = "PLAYER_BASIC"
	TypePlayerMiss        = "PLAYER_MISS"
	TypePlayerItem        = "PLAYER_ITEM"
	TypePlayerSkill       = "PLAYER_SKILL"
	TypePlayerDodge       = "PLAYER_DODGE"
	TypeEnemyBasic        = "ENEMY_BASIC"
	TypeEnemySkillAbsorb  = "ENEMY_SKILL_ABSORB"
	TypeEnemySkillMiss    = "ENEMY_SKILL_MISS"
	TypeEnemySkillSuccess = "ENEMY_SKILL_SUCCESS"
	TypePlayerBuff        = "PLAYER_BUFF"
	TypePlayerSkillDamage = "PLAYER_SKILL_DAMAGE"
	TypeRiddleRestore     = "RIDDLE_RESTORE"
	TypeEffectRestore     = "EFFECT_RESTORE"
	TypeItemRestore       = "ITEM_RESTORE"
	TypeCureRestore       = "CURE_RESTORE"
	TypeSpiritShield      = "SPIRIT_SHIELD"
	TypeSparkTrigger      = "SPARK_TRIGGER"
	TypeDispel            = "DISPEL"
	TypeCooldownExpire    = "COOLDOWN_EXPIRE"
	TypeBuffExpire        = "BUFF_EXPIRE"
	TypeDebuffExpire      = "DEBUFF_EXPIRE"
	TypeEnemyResist       = "ENEMY_RESIST"
	TypeEnemyDebuff       = "ENEMY_DEBUFF"
	TypeRoundEnd          = "ROUND_END"
	TypeRoundStart        = "ROUND_START"
	TypeSpawn             = "SPAWN"
	TypeDeath             = "DEATH"
	TypeGem               = "GEM"
	TypeCredits           = "CREDITS"
	TypeDrop              = "DROP"
	TypeProficiency       = "PROFICIENCY"
	TypeExperience        = "EXPERIENCE"
	TypeAutoSalvage       = "AUTO_SALVAGE"
	TypeAutoSell          = "AUTO_SELL"
	TypeClearBonus        = "CLEAR_BONUS"
	TypeTokenBonus        = "TOKEN_BONUS"
	TypeEventItem         = "EVENT_ITEM"
	TypeRiddleSuccess     = "RIDDLE_SUCCESS"
	TypeRiddleFail        = "RIDDLE_FAIL"
	TypeMBUsage           = "MB_USAGE"
)

func grp(name, patt string) string { return `(?P<` + name + `>` + patt + `)` }
func num(name string) string { return grp(name, `\d+`) }
func decimal(name string) string { return grp(name, `\d+(?:\.\d*)?`) }
func words(name string) string { return grp(name, `[\w\s-]+`) }
func mult(alts ...string) string { return grp("multiplier_type", strings.Join(alts, "|")) }

var (
	resist     = `(?: \(` + num("resist") + `% resisted\))?`
	enemySpell = words("monster") + ` ` + grp("spell_type", `casts|uses`) + ` ` + words("skill")
)

// pattern is one row of the table. numeric names captures decoded as numbers.
type pattern struct {
	typ     string
	re      *regexp.Regexp
	numeric map[string]bool
	// reject vetoes a match the regexp alone cannot exclude.
	reject func(fields map[string]any) bool
}

func def(typ, expr string, numeric ...string) pattern {
	p := pattern{typ: typ, re: regexp.MustCompile(expr), numeric: make(map[string]bool, len(numeric))}
	for _, n := range numeric {
		p.numeric[n] = true
	}
	return p
}

func targetIsPlayer(fields map[string]any) bool {
	m, _ := fields["monster"].(string)
	return strings.HasPrefix(m, "you")
}

// defaultTable is evaluated top to bottom; the first match wins.
func defaultTable() []pattern {
	playerBasic := def(TypePlayerBasic,
		words("name")+` `+mult("hits", "crits")+` `+words("monster")+` for `+num("value")+` `+words("damage_type")+` damage\.`,
		"value")
	playerBasic.reject = targetIsPlayer

	return []pattern{
		// actions
		playerBasic,
		def(TypePlayerMiss, words("monster")+` `+mult("parries")+` your attack.`),
		def(TypePlayerItem, `You use `+words("name")+`\.`),
		def(TypePlayerSkill, `You cast `+words("name")+`\.`),
		def(TypePlayerDodge, `You `+mult("evade", "parry")+` the attack from `+words("monster")+`\.`),
		def(TypeEnemyBasic, words("monster")+` `+mult("hits", "crits")+` you for `+num("value")+` `+words("damage_type")+` damage\.`, "value"),
		def(TypeEnemySkillAbsorb, enemySpell+`, but is `+mult("absorb")+`ed\. You gain `+words("mana")),
		def(TypeEnemySkillMiss, enemySpell+`\. You `+mult("evade", "parry")+` the attack\.`),
		def(TypeEnemySkillSuccess, enemySpell+`, and `+mult("hits", "crits")+` you for `+num("value")+` `+words("damage_type")+` damage`+resist+`\.?`, "value", "resist"),

		// effects
		def(TypePlayerBuff, `You gain the effect `+words("name")+`\.`),
		def(TypePlayerSkillDamage, words("name")+` `+mult("hits", "blasts")+` `+words("monster")+` for `+num("value")+` `+words("damage_type")+` damage`+resist, "value", "resist"),
		def(TypeRiddleRestore, `Time Bonus: recovered `+num("hp")+` HP and `+num("mp")+` MP\.`, "hp", "mp"),
		def(TypeEffectRestore, words("name")+` restores `+num("value")+` points of `+grp("type", `\w+`)+`\.`, "value"),
		def(TypeItemRestore, `Recovered `+num("value")+` points of `+grp("type", `\w+`)+`\.`, "value"),
		def(TypeCureRestore, `You are healed for `+num("value")+` Health Points\.`, "value"),
		def(TypeSpiritShield, `Your spirit shield absorbs `+num("damage")+` points of damage from the attack into `+num("spirit_damage")+` points of spirit damage\.`, "damage", "spirit_damage"),
		def(TypeSparkTrigger, `Your Spark of Life restores you from the brink of defeat\.`),
		def(TypeDispel, `The effect `+words("name")+` was dispelled\.`),
		def(TypeCooldownExpire, `Cooldown expired for `+words("name")),
		def(TypeDebuffExpire, `The effect `+words("name")+` on `+words("monster")+` has expired\.`),
		def(TypeBuffExpire, `The effect `+words("name")+` has expired\.`),
		def(TypeEnemyResist, words("monster")+` resists your spell\.`),
		def(TypeEnemyDebuff, words("monster")+` gains the effect `+words("name")+`\.`),

		// info
		def(TypeRoundEnd, `You are Victorious!`),
		def(TypeRoundStart, `Initializing `+grp("battle_type", `[\w\s#]+`)+` \(Round `+num("current")+` / `+num("max")+`\) \.\.\.`, "current", "max"),
		def(TypeSpawn, `Spawned Monster `+grp("letter", `[A-Z]`)+`: MID=`+num("mid")+` \(`+words("monster")+`\) LV=`+num("level")+` HP=`+num("hp"), "mid", "level", "hp"),
		def(TypeDeath, words("monster")+` has been defeated\.`),
		def(TypeGem, words("monster")+` drops a `+grp("type", `\w+`)+` Gem powerup!`),
		def(TypeCredits, `You gain `+num("value")+` Credits!`, "value"),
		def(TypeDrop, words("monster")+` dropped \[`+grp("item", `.*`)+`\]`),
		def(TypeProficiency, `You gain `+decimal("value")+` points of `+words("type")+` proficiency\.`, "value"),
		def(TypeExperience, `You gain `+num("value")+` EXP!`, "value"),
		def(TypeAutoSalvage, `A traveling salesmoogle salvages it into `+num("value")+`x \[`+grp("item", `[\w\s-]+`)+`\]`, "value"),
		def(TypeAutoSell, `A traveling salesmoogle gives you \[`+num("value")+` Credits\] for it\.`, "value"),
		def(TypeClearBonus, `Battle Clear Bonus! \[`+words("item")+`\]`),
		def(TypeTokenBonus, `Arena Token Bonus! \[`+words("item")+`\]`),
		def(TypeEventItem, `You found a \[`+words("item")+`\]`),
		def(TypeRiddleSuccess, `The RiddleMaster is pleased with your answer, and grants you his blessings\.`),
		def(TypeRiddleFail, `You failed to correctly answer the RiddleMaster within the time limit\. You lose `+num("value")+` Stamina\.`, "value"),
		def(TypeMBUsage, `Used: `+grp("value", `.*`)),
	}
}
