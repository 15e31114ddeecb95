/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package workitem

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/almforge/coreforge/internal/errors"
)

var validate = validator.New()

// validateCreateInput runs struct-tag validation and the one rule tags
// can't express (status vocabulary). FMEA ratings are accepted on any
// work-item type.
func validateCreateInput(in CreateInput) error {
	if err := validate.Struct(in); err != nil {
		return appErrors.NewValidationError(friendlyMessage(err))
	}
	if in.Status != "" && !baseStatuses[in.Status] {
		return appErrors.NewValidationError(fmt.Sprintf("unknown status %q", in.Status))
	}
	return nil
}

// validateChangeDescription enforces the "required for audit compliance"
// rule on Update and Restore.
func validateChangeDescription(desc string) error {
	if strings.TrimSpace(desc) == "" {
		return appErrors.NewValidationError("change_description is required and must not be blank")
	}
	return nil
}

func friendlyMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// computeRPN returns severity*occurrence*detection when all three FMEA
// ratings are present (risk work items); nil otherwise.
func computeRPN(severity, occurrence, detection *int) *int {
	if severity == nil || occurrence == nil || detection == nil {
		return nil
	}
	rpn := (*severity) * (*occurrence) * (*detection)
	return &rpn
}
