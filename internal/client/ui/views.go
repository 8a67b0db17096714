package ui

import (
	"fmt"
	"strings"

	"github.com/avolkov/tandem/internal/client/auth"
	"github.com/avolkov/tandem/internal/client/route"
)

// view declares one navigable page and its access policy.
type view struct {
	title string
	req   route.Requirement
}

// views is the route table. Every protected page declares RequiresAuth;
// the evaluator enforces the rest.
var views = map[string]view{
	route.LoginPath:      {title: "Sign in"},
	route.HomePath:       {title: "Dashboard", req: route.Requirement{RequiresAuth: true}},
	"/quiz":              {title: "Journey quiz", req: route.Requirement{RequiresAuth: true, RequiresOnboarding: true}},
	route.OnboardingPath: {title: "Onboarding", req: route.Requirement{RequiresAuth: true, RequiresOnboarding: true}},
	"/settings":          {title: "Settings", req: route.Requirement{RequiresAuth: true}},
	"/admin":             {title: "Admin", req: route.Requirement{RequiresAuth: true, RequiresAdmin: true}},
}

const navHelp = "1 dashboard · 2 quiz · 3 onboarding · 4 settings · 5 admin · ctrl+c quit"

func (a *App) dashboardView(snap auth.Snapshot) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Dashboard"))
	b.WriteString("\n")

	if snap.User != nil {
		b.WriteString(labelStyle.Render("Signed in as "))
		b.WriteString(valueStyle.Render(snap.User.Email))
		if snap.IsAdmin {
			b.WriteString(" ")
			b.WriteString(badgeStyle.Render("admin"))
		}
		b.WriteString("\n")
	}

	if p := snap.Profile; p != nil {
		b.WriteString(labelStyle.Render("Name: "))
		b.WriteString(valueStyle.Render(p.FullName))
		b.WriteString("\n")
		if p.PartnerName != "" {
			b.WriteString(labelStyle.Render("Partner: "))
			b.WriteString(valueStyle.Render(p.PartnerName))
			b.WriteString("\n")
		}
		if p.AnniversaryDate != nil {
			b.WriteString(labelStyle.Render("Anniversary: "))
			b.WriteString(valueStyle.Render(p.AnniversaryDate.Format("January 2, 2006")))
			b.WriteString("\n")
		}
	} else {
		b.WriteString(hintStyle.Render("Your profile is still loading, or has not been created yet."))
		b.WriteString("\n")
	}

	if a.onboardingHint != "" {
		b.WriteString(hintStyle.Render(a.onboardingHint))
		b.WriteString("\n")
	}

	b.WriteString(navStyle.Render(navHelp))
	return b.String()
}

func (a *App) quizView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Journey quiz"))
	b.WriteString("\n")
	b.WriteString(valueStyle.Render("Today's journey questions will appear here."))
	b.WriteString("\n")
	b.WriteString(navStyle.Render(navHelp))
	return b.String()
}

func (a *App) onboardingView(snap auth.Snapshot) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Onboarding"))
	b.WriteString("\n")

	if snap.IsOnboarded {
		b.WriteString(valueStyle.Render("All set! Your space is ready."))
		b.WriteString("\n")
	} else {
		b.WriteString(valueStyle.Render("A few steps before you start your journey together."))
		b.WriteString("\n")
		b.WriteString(hintStyle.Render("press enter to complete onboarding"))
		b.WriteString("\n")
	}

	if a.status != "" {
		b.WriteString(errorStyle.Render(a.status))
		b.WriteString("\n")
	}
	b.WriteString(navStyle.Render(navHelp))
	return b.String()
}

func (a *App) settingsView(snap auth.Snapshot) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Settings"))
	b.WriteString("\n")

	if snap.User != nil {
		b.WriteString(labelStyle.Render("Account: "))
		b.WriteString(valueStyle.Render(snap.User.Email))
		b.WriteString("\n")
		b.WriteString(labelStyle.Render("User id: "))
		b.WriteString(valueStyle.Render(snap.User.ID.String()))
		b.WriteString("\n")
	}
	b.WriteString(hintStyle.Render("press enter to sign out"))
	b.WriteString("\n")

	if a.status != "" {
		b.WriteString(errorStyle.Render(a.status))
		b.WriteString("\n")
	}
	b.WriteString(navStyle.Render(navHelp))
	return b.String()
}

func (a *App) adminView(snap auth.Snapshot) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Admin"))
	b.WriteString("\n")
	b.WriteString(valueStyle.Render("Journey and question management lives here."))
	b.WriteString("\n")
	if snap.User != nil {
		b.WriteString(labelStyle.Render(fmt.Sprintf("Acting as %s", snap.User.Email)))
		b.WriteString("\n")
	}
	b.WriteString(navStyle.Render(navHelp))
	return b.String()
}
