package discord

import (
	"github.com/bwmarrin/discordgo"
)

// options indexes command options by name.
type options map[string]*discordgo.ApplicationCommandInteractionDataOption

// parseOptions unwraps a sub-command when present and returns its name
// with its options.
func parseOptions(opts []*discordgo.ApplicationCommandInteractionDataOption) (string, options) {
	if len(opts) == 1 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		_, inner := parseOptions(opts[0].Options)
		return opts[0].Name, inner
	}
	out := make(options, len(opts))
	for _, o := range opts {
		out[o.Name] = o
	}
	return "", out
}

func (o options) has(name string) bool {
	_, ok := o[name]
	return ok
}

func (o options) str(name string) string {
	if opt, ok := o[name]; ok && opt.Type == discordgo.ApplicationCommandOptionString {
		return opt.StringValue()
	}
	return ""
}

func (o options) integer(name string, def int) int {
	if opt, ok := o[name]; ok && opt.Type == discordgo.ApplicationCommandOptionInteger {
		return int(opt.IntValue())
	}
	return def
}

func (o options) number(name string) (float64, bool) {
	if opt, ok := o[name]; ok && opt.Type == discordgo.ApplicationCommandOptionNumber {
		return opt.FloatValue(), true
	}
	return 0, false
}

// id returns the snowflake behind a user, channel or role option.
func (o options) id(name string) string {
	opt, ok := o[name]
	if !ok {
		return ""
	}
	switch opt.Type {
	case discordgo.ApplicationCommandOptionUser:
		return opt.UserValue(nil).ID
	case discordgo.ApplicationCommandOptionChannel:
		return opt.ChannelValue(nil).ID
	case discordgo.ApplicationCommandOptionRole:
		return opt.RoleValue(nil, "").ID
	case discordgo.ApplicationCommandOptionString:
		return opt.StringValue()
	}
	return ""
}

// optional returns a pointer to the string option, or nil when absent.
func (o options) optional(name string) *string {
	if !o.has(name) {
		return nil
	}
	v := o.str(name)
	return &v
}
