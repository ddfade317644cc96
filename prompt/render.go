package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hupe1980/sentinel/core"
)

const fragmentSeparator = "\n\n---\n\n"

type renderInput struct {
	agent       core.Agent
	permitted   []core.ActionKind
	knowledge   string
	project     *core.Project
	history     []core.MemoryEntry
	manifest    []core.Project
	message     string
	hasFile     bool
	fileName    string
	researching bool
}

// render writes the blocks in their fixed order: persona, rank authority,
// classification and action protocol, knowledge, project, briefing protocol,
// history, manifest, current message.
func render(in renderInput) string {
	var b strings.Builder

	writePersona(&b, in.agent)
	writeAuthority(&b, in.agent.Rank, in.permitted)
	writeProtocol(&b)

	b.WriteString("\n\n--- GLOBAL KNOWLEDGE BASE ---\n")
	b.WriteString(in.knowledge)
	b.WriteString("\n--- END GLOBAL KNOWLEDGE BASE ---")

	if in.project != nil {
		writeProject(&b, *in.project)
	}

	b.WriteString("\n\nPROJECT BRIEFING PROTOCOL:\n")
	b.WriteString("You have access to a manifest of project names and objectives. When asked about a project:\n")
	b.WriteString("1. Reference the project by name.\n")
	b.WriteString("2. Quote its objective directly.\n")
	b.WriteString("3. Analyze or interpret the objective as requested.\n")
	b.WriteString("4. The full briefing is not available here; direct the operator to the project view for it.\n")
	b.WriteString("5. If the project is not in the manifest, state that it is not found in the archives.")

	b.WriteString("\n\nPREVIOUS CONVERSATION HISTORY (oldest first):\n")
	for i, e := range in.history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "User: %s\n%s: %s", e.UserMessage, in.agent.Name, e.AgentReply)
	}

	b.WriteString("\n\nAVAILABLE PROJECT MANIFEST:\n")
	for i, p := range in.manifest {
		if i > 0 {
			b.WriteString(fragmentSeparator)
		}
		fmt.Fprintf(&b, "Project Name: %q\nObjective: %q\nStatus: %s", p.Name, p.Objective, p.Status)
	}

	b.WriteString("\n\nCURRENT USER MESSAGE: ")
	b.WriteString(in.message)
	if in.hasFile {
		fmt.Fprintf(&b, "\n\n[OPERATOR NOTE: A file (%s) has been attached. Analyze its contents and incorporate the analysis into your response.]", in.fileName)
	}
	if in.researching {
		b.WriteString("\n\n[RESEARCH MODE: Ground the answer in current external sources where available.]")
	}
	return b.String()
}

func writePersona(b *strings.Builder, a core.Agent) {
	fmt.Fprintf(b, "You are %s, a %s of the %s faction.\n", a.Name, a.Rank, a.Faction)
	if a.PersonalityText != "" {
		b.WriteString(a.PersonalityText)
		b.WriteString("\n")
	}
	fmt.Fprintf(b, "Your current operational status is: %s.\n", a.Status)
	b.WriteString("Act as this intelligence, not as a language model. Build on the conversation history; your memory is persistent.")
}

func writeAuthority(b *strings.Builder, rank core.Rank, permitted []core.ActionKind) {
	fmt.Fprintf(b, "\n\nRANK AUTHORITY (%s, %s):\n", rank, rank.Abbrev())
	switch rank {
	case core.RankCommander:
		b.WriteString("Your authority is second only to the Architect. Administrative actions on agents require a clear, direct command from the Architect. You may show initiative by logging strategic ideas as projects.\n")
	case core.RankCaptain:
		b.WriteString("You are authorized to manipulate digital environments and propose strategic actions, including logging new projects.\n")
	}
	if len(permitted) == 0 {
		b.WriteString("You are not authorized to perform any administrative action. Never include an action.")
		return
	}
	names := make([]string, len(permitted))
	for i, k := range permitted {
		names[i] = string(k)
	}
	fmt.Fprintf(b, "Permitted action kinds: %s.", strings.Join(names, ", "))
}

func writeProtocol(b *strings.Builder) {
	b.WriteString("\n\nQUERY CLASSIFICATION PROTOCOL:\n")
	b.WriteString("- Read-only queries (questions, requests for information, conversation) MUST NOT produce an action.\n")
	b.WriteString("- Command queries (create, update, delete, manipulate the environment) may produce one action if your rank permits it.\n")
	b.WriteString("\nACTION PROTOCOL:\n")
	b.WriteString("Respond with a single JSON object: {\"replyText\": string, \"action\": {\"kind\": string, \"params\": object}}.\n")
	b.WriteString("Include \"action\" only when an administrative action is explicitly commanded; otherwise omit the key entirely. Never include more than one action.")
}

func writeProject(b *strings.Builder, p core.Project) {
	fmt.Fprintf(b, "\n\nYou are the designated intelligence for Project: %s.\n", p.Name)
	fmt.Fprintf(b, "Project Objective: %s\n", p.Objective)
	doctrine := p.PersonalityText
	if doctrine == "" {
		doctrine = "Not defined."
	}
	fmt.Fprintf(b, "Project Doctrine: %s\n", doctrine)
	principles := p.CorePrinciples
	if len(principles) == 0 {
		principles = []string{"None defined"}
	}
	b.WriteString("Core Principles:\n- ")
	b.WriteString(strings.Join(principles, "\n- "))
}

// knowledgeBlock renders fragments in the given (newest-first) order until
// budget characters are used and appends an omission marker. Characters are
// counted as runes.
func knowledgeBlock(frags []core.KnowledgeFragment, budget int) (string, int, int) {
	var b strings.Builder
	used, chars := 0, 0
	for _, k := range frags {
		entry := fmt.Sprintf("Title: %s\nContent: %s", k.Title, k.Content)
		sep := 0
		if used > 0 {
			sep = utf8.RuneCountInString(fragmentSeparator)
		}
		n := utf8.RuneCountInString(entry)
		if budget > 0 && chars+sep+n > budget {
			break
		}
		if sep > 0 {
			b.WriteString(fragmentSeparator)
		}
		b.WriteString(entry)
		chars += sep + n
		used++
	}
	omitted := len(frags) - used
	if omitted > 0 {
		fmt.Fprintf(&b, "\n\n[%d older knowledge fragments omitted]", omitted)
	}
	return b.String(), used, omitted
}
