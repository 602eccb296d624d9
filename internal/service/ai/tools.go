package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"portfolio/internal/models"
)

// ProjectLister is the read side of the project store.
type ProjectLister interface {
	ListProjects(ctx context.Context) ([]models.Project, error)
}

type listProjectsParams struct {
	FeaturedOnly bool `json:"featured_only,omitempty"`
}

type listProjectsTool struct {
	projects ProjectLister
}

// NewListProjectsTool exposes the live project list to the model.
func NewListProjectsTool(projects ProjectLister) tool.InvokableTool {
	t := &listProjectsTool{projects: projects}
	info := &schema.ToolInfo{
		Name: "list_projects",
		Desc: "List the projects currently shown in the portfolio with their tech stack and links. " +
			"Use it for questions about what Aman has built.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"featured_only": {
				Desc:     "Only return featured projects.",
				Type:     schema.Boolean,
				Required: false,
			},
		}),
	}
	return utils.NewTool(info, t.run)
}

func (t *listProjectsTool) run(ctx context.Context, params *listProjectsParams) (string, error) {
	projects, err := t.projects.ListProjects(ctx)
	if err != nil {
		return "", fmt.Errorf("list projects: %w", err)
	}
	featuredOnly := params != nil && params.FeaturedOnly
	var selected []models.Project
	for _, p := range projects {
		if featuredOnly && !p.Featured {
			continue
		}
		selected = append(selected, p)
	}
	if len(selected) == 0 {
		return "No projects are listed yet.", nil
	}
	return formatProjects(selected), nil
}

func formatProjects(projects []models.Project) string {
	var b strings.Builder
	for i, p := range projects {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "PROJECT: %s", p.Title)
		if p.Featured {
			b.WriteString(" (featured)")
		}
		fmt.Fprintf(&b, "\n- %s", p.Description)
		if len(p.TechStack) > 0 {
			fmt.Fprintf(&b, "\n- Tech: %s", strings.Join(p.TechStack, ", "))
		}
		if p.GithubURL != nil && *p.GithubURL != "" {
			fmt.Fprintf(&b, "\n- Code: %s", *p.GithubURL)
		}
		if p.LiveURL != nil && *p.LiveURL != "" {
			fmt.Fprintf(&b, "\n- Live: %s", *p.LiveURL)
		}
		b.WriteString("\n")
	}
	return b.String()
}
