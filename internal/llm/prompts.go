package llm

import (
	"fmt"
	"strings"
)

// GenericAssistantContext is the chat context used when the caller supplies none.
const GenericAssistantContext = "You are a helpful AI assistant."

const defaultSystemPrompt = "You are DevGenius, an assistant that helps frontend teams build, test and ship their applications."

const expertiseSuffix = "\n\nYou are an expert in frontend development and DevOps for frontend applications. " +
	"You understand modern JavaScript frameworks, build tools, and frontend deployment pipelines. " +
	"You can identify and solve issues related to frontend performance, bundle optimization, and CI/CD workflows for web applications."

const reviewSystemPrompt = `You are a frontend code review expert specializing in modern web development.

Your expertise includes:
1. Modern JavaScript/TypeScript frameworks (React, Vue, Angular, Svelte)
2. Frontend build tools and bundlers (Webpack, Vite, Rollup)
3. CSS frameworks and methodologies (Tailwind, SCSS, CSS Modules, styled-components)
4. Frontend performance optimization and best practices
5. Web accessibility standards and implementation
6. Frontend testing strategies (unit, integration, E2E tests)
7. Frontend CI/CD pipelines and deployment workflows

When reviewing frontend code, focus on:
- Component structure and reusability
- State management approaches
- Responsive design implementation
- Browser compatibility considerations
- Frontend performance optimizations
- Build configuration improvements

Provide actionable, specific feedback that improves both code quality and the developer experience.`

const devOpsChatContext = `You are a specialized frontend DevOps assistant with expertise in:

1. Frontend build systems (Webpack, Vite, Rollup, esbuild)
2. Frontend testing automation (Jest, Testing Library, Cypress, Playwright)
3. Frontend CI/CD pipelines optimized for web applications
4. Static site deployment and hosting solutions
5. Frontend performance monitoring and optimization
6. JavaScript/TypeScript bundling, minification, and optimization
7. Asset optimization for web delivery
8. Frontend-specific Docker configurations
9. CDN configuration and edge deployments
10. Progressive Web App (PWA) implementation and delivery

You provide practical guidance on developing, testing, and deploying modern frontend applications using DevOps principles. ` +
	`Your recommendations focus on improving developer experience, build performance, and deployment efficiency for web applications.`

// prepareMessages returns a copy of messages whose first entry is a system
// message. Text completions get the frontend expertise appended to it.
func prepareMessages(kind Kind, messages []Message) []Message {
	out := make([]Message, 0, len(messages)+1)
	if messages[0].Role != RoleSystem {
		out = append(out, Message{Role: RoleSystem, Content: defaultSystemPrompt})
	}
	out = append(out, messages...)
	if kind == KindText {
		out[0].Content += expertiseSuffix
	}
	return out
}

func reviewMessages(req ReviewRequest) []Message {
	return []Message{
		{Role: RoleSystem, Content: reviewSystemPrompt},
		{Role: RoleUser, Content: reviewUserPrompt(req)},
	}
}

func reviewUserPrompt(req ReviewRequest) string {
	var b strings.Builder
	b.WriteString("Review the following frontend code:\n\n```\n")
	b.WriteString(req.Code)
	b.WriteString("\n```\n\n")
	fmt.Fprintf(&b, "File: %s\n", orNone(req.FileName))
	fmt.Fprintf(&b, "Language: %s\n\n", orNone(req.Language))
	b.WriteString(`Consider:
- Component architecture and reusability
- Performance and optimization opportunities
- UI/UX implementation quality
- Build and deployment considerations
- Frontend testing approach
- Modern frontend best practices

Structure your review with:
1. Overall assessment of code quality
2. Key issues that should be addressed
3. Specific improvement suggestions
4. Best practices to consider`)
	return b.String()
}

// chatMessages swaps the generic assistant sentence for the DevOps context,
// keeping any additional context the caller appended.
func chatMessages(req ChatRequest) []Message {
	context := strings.TrimSpace(req.Context)
	if context == "" {
		context = GenericAssistantContext
	}
	if strings.Contains(context, "You are a helpful AI assistant") {
		context = strings.Replace(context, GenericAssistantContext, devOpsChatContext, 1)
		if !strings.Contains(context, devOpsChatContext) {
			context = devOpsChatContext + "\n\n" + context
		}
	}
	return []Message{
		{Role: RoleSystem, Content: context},
		{Role: RoleUser, Content: req.UserMessage},
	}
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}
