package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestActivityPlanPerKind(t *testing.T) {
	tests := []struct {
		name          string
		activity      Activity
		wantRecipient UserType
		wantTitle     string
		wantBodyPart  string
	}{
		{
			name: "material activity notifies staff",
			activity: Activity{
				Kind:      ActivityMaterial,
				ClientID:  "client-1",
				ProjectID: "project-1",
				User:      ActivityUser{UserID: "u1", FullName: "Aylin Demir"},
				Materials: []string{"cement", "rebar"},
			},
			wantRecipient: UserTypeStaff,
			wantTitle:     "Material update",
			wantBodyPart:  "Aylin Demir updated 2 material(s): cement, rebar",
		},
		{
			name: "transfer notifies destination staff",
			activity: Activity{
				Kind:           ActivityTransfer,
				ClientID:       "client-dst",
				SourceClientID: "client-src",
				User:           ActivityUser{UserID: "u1", FullName: "Aylin Demir"},
				Description:    "Unit 4B",
			},
			wantRecipient: UserTypeStaff,
			wantTitle:     "Property transferred in",
			wantBodyPart:  "Unit 4B transferred in by Aylin Demir",
		},
		{
			name: "staff assignment notifies client admins",
			activity: Activity{
				Kind:     ActivityStaffAssigned,
				ClientID: "client-1",
				User:     ActivityUser{UserID: "u1", FullName: "Aylin Demir"},
			},
			wantRecipient: UserTypeClientAdmin,
			wantTitle:     "Staff assigned",
			wantBodyPart:  "Aylin Demir was assigned",
		},
		{
			name: "staff removal notifies client admins",
			activity: Activity{
				Kind:     ActivityStaffRemoved,
				ClientID: "client-1",
				User:     ActivityUser{UserID: "u1"},
			},
			wantRecipient: UserTypeClientAdmin,
			wantTitle:     "Staff removed",
			wantBodyPart:  "A user was removed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := tt.activity.Plan()
			if err != nil {
				t.Fatalf("Plan() unexpected error: %v", err)
			}
			if plan.ClientID != tt.activity.ClientID {
				t.Fatalf("ClientID = %q, want %q", plan.ClientID, tt.activity.ClientID)
			}
			if plan.RecipientType != tt.wantRecipient {
				t.Fatalf("RecipientType = %s, want %s", plan.RecipientType, tt.wantRecipient)
			}
			if plan.Title != tt.wantTitle {
				t.Fatalf("Title = %q, want %q", plan.Title, tt.wantTitle)
			}
			if !strings.Contains(plan.Body, tt.wantBodyPart) {
				t.Fatalf("Body = %q, want it to contain %q", plan.Body, tt.wantBodyPart)
			}
		})
	}
}

func TestActivityPlanExplicitMessageWins(t *testing.T) {
	a := Activity{
		Kind:      ActivityMaterial,
		ClientID:  "client-1",
		User:      ActivityUser{UserID: "u1", FullName: "Aylin Demir"},
		Materials: []string{"cement"},
		Message:   "custom text",
	}

	plan, err := a.Plan()
	if err != nil {
		t.Fatalf("Plan() unexpected error: %v", err)
	}
	if plan.Body != "custom text" {
		t.Fatalf("Body = %q, want the explicit message", plan.Body)
	}
}

func TestActivitySecondaryPlanOnlyForTransfers(t *testing.T) {
	transfer := Activity{
		Kind:            ActivityTransfer,
		ClientID:        "client-dst",
		SourceClientID:  "client-src",
		SourceProjectID: "project-src",
		User:            ActivityUser{UserID: "u1", FullName: "Aylin Demir"},
	}

	plan, ok := transfer.SecondaryPlan()
	if !ok {
		t.Fatal("SecondaryPlan() ok = false for a transfer")
	}
	if plan.ClientID != "client-src" || plan.ProjectID != "project-src" {
		t.Fatalf("secondary scope = %s/%s, want client-src/project-src", plan.ClientID, plan.ProjectID)
	}
	if plan.Title != "Property transferred out" {
		t.Fatalf("Title = %q, want the outbound title", plan.Title)
	}

	material := Activity{Kind: ActivityMaterial, ClientID: "client-1"}
	if _, ok := material.SecondaryPlan(); ok {
		t.Fatal("SecondaryPlan() ok = true for a non-transfer")
	}
}

func TestActivityValidate(t *testing.T) {
	valid := Activity{Kind: ActivityMaterial, ClientID: "client-1"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	tests := []struct {
		name     string
		activity Activity
	}{
		{name: "unknown kind", activity: Activity{Kind: ActivityKind("bogus"), ClientID: "client-1"}},
		{name: "missing client", activity: Activity{Kind: ActivityMaterial}},
		{name: "transfer without source", activity: Activity{Kind: ActivityTransfer, ClientID: "client-1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.activity.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestDeactivationDecision(t *testing.T) {
	if deactivate, _ := DeactivationDecision(4, 5); deactivate {
		t.Fatal("4 failures should stay below a threshold of 5")
	}

	deactivate, reason := DeactivationDecision(5, 5)
	if !deactivate {
		t.Fatal("5 failures should trip a threshold of 5")
	}
	if !strings.Contains(reason, "5 delivery failures") {
		t.Fatalf("reason = %q, want it to mention the failure count", reason)
	}

	if deactivate, _ := DeactivationDecision(5, 0); !deactivate {
		t.Fatal("a non-positive threshold should fall back to the default of 5")
	}
}
