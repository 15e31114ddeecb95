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

package signature_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	appcrypto "github.com/almforge/coreforge/pkg/crypto"
	"github.com/almforge/coreforge/pkg/signature"
)

var _ = Describe("Service", func() {
	var (
		repo       *signature.MemoryRepository
		svc        *signature.Service
		ctx        context.Context
		privPEM    string
		pubPEM     string
		otherPriv  string
		otherPub   string
		workItemID string
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = signature.NewMemoryRepository()
		svc = signature.NewService(repo, nil)

		var err error
		privPEM, pubPEM, err = appcrypto.GenerateKeyPair(2048)
		Expect(err).NotTo(HaveOccurred())
		otherPriv, otherPub, err = appcrypto.GenerateKeyPair(2048)
		Expect(err).NotTo(HaveOccurred())

		workItemID = "REQ-100"
	})

	snapshot := func(title string) map[string]interface{} {
		return map[string]interface{}{
			"id":    "REQ-100",
			"title": title,
		}
	}

	Describe("Sign then Verify", func() {
		It("round-trips successfully against the signed content and key", func() {
			rec, err := svc.Sign(ctx, workItemID, "1.0", snapshot("Auth"), "alice", privPEM)
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.IsValid).To(BeTrue())
			Expect(rec.ContentHash).To(HaveLen(64))
			Expect(rec.SignatureHash).To(HaveLen(2048 / 4))

			result, err := svc.Verify(ctx, rec.ID, snapshot("Auth"), pubPEM)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsValid).To(BeTrue())
			Expect(result.ContentMatches).To(BeTrue())
			Expect(result.SignatureIntact).To(BeTrue())
			Expect(result.Error).To(BeEmpty())
		})
	})

	Describe("Verify against mutated content", func() {
		It("reports content_matches=false but still checks signature_intact", func() {
			rec, err := svc.Sign(ctx, workItemID, "1.0", snapshot("Auth"), "alice", privPEM)
			Expect(err).NotTo(HaveOccurred())

			result, err := svc.Verify(ctx, rec.ID, snapshot("AuthV2"), pubPEM)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.ContentMatches).To(BeFalse())
			Expect(result.SignatureIntact).To(BeTrue())
			Expect(result.IsValid).To(BeFalse())
		})
	})

	Describe("Verify with a mismatched key", func() {
		It("fails signature_intact even when content matches", func() {
			rec, err := svc.Sign(ctx, workItemID, "1.0", snapshot("Auth"), "alice", privPEM)
			Expect(err).NotTo(HaveOccurred())

			result, err := svc.Verify(ctx, rec.ID, snapshot("Auth"), otherPub)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.ContentMatches).To(BeTrue())
			Expect(result.SignatureIntact).To(BeFalse())
			Expect(result.IsValid).To(BeFalse())
		})
	})

	Describe("Verify an unknown signature id", func() {
		It("returns not-found with all fields false", func() {
			result, err := svc.Verify(ctx, "does-not-exist", snapshot("Auth"), pubPEM)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsValid).To(BeFalse())
			Expect(result.ContentMatches).To(BeFalse())
			Expect(result.SignatureIntact).To(BeFalse())
			Expect(result.Error).To(Equal("Signature not found"))
		})
	})

	Describe("Invalidate", func() {
		It("flips every valid signature and is idempotent", func() {
			rec, err := svc.Sign(ctx, workItemID, "1.0", snapshot("Auth"), "alice", privPEM)
			Expect(err).NotTo(HaveOccurred())

			ids, err := svc.Invalidate(ctx, workItemID, "WorkItem modified")
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(ConsistOf(rec.ID))

			result, err := svc.Verify(ctx, rec.ID, snapshot("Auth"), pubPEM)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Error).To(Equal("Signature invalidated: WorkItem modified"))

			ids2, err := svc.Invalidate(ctx, workItemID, "WorkItem modified")
			Expect(err).NotTo(HaveOccurred())
			Expect(ids2).To(BeEmpty())
		})
	})

	Describe("IsSigned and SignaturesFor", func() {
		It("reflects only currently-valid signatures by default", func() {
			signed, err := svc.IsSigned(ctx, workItemID)
			Expect(err).NotTo(HaveOccurred())
			Expect(signed).To(BeFalse())

			rec, err := svc.Sign(ctx, workItemID, "1.0", snapshot("Auth"), "alice", privPEM)
			Expect(err).NotTo(HaveOccurred())

			signed, err = svc.IsSigned(ctx, workItemID)
			Expect(err).NotTo(HaveOccurred())
			Expect(signed).To(BeTrue())

			_, err = svc.Invalidate(ctx, workItemID, "WorkItem modified")
			Expect(err).NotTo(HaveOccurred())

			signed, err = svc.IsSigned(ctx, workItemID)
			Expect(err).NotTo(HaveOccurred())
			Expect(signed).To(BeFalse())

			all, err := svc.SignaturesFor(ctx, workItemID, true)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(1))
			Expect(all[0].ID).To(Equal(rec.ID))

			valid, err := svc.SignaturesFor(ctx, workItemID, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(valid).To(BeEmpty())
		})
	})

	Describe("Scenario S1 — sign, mutate, verify fails", func() {
		It("reports invalidated after the work item is updated", func() {
			rec, err := svc.Sign(ctx, workItemID, "1.0", snapshot("Auth"), "alice", privPEM)
			Expect(err).NotTo(HaveOccurred())

			_, err = svc.Invalidate(ctx, workItemID, "WorkItem modified")
			Expect(err).NotTo(HaveOccurred())

			result, err := svc.Verify(ctx, rec.ID, snapshot("AuthV2"), pubPEM)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.IsValid).To(BeFalse())
			Expect(result.ContentMatches).To(BeFalse())
			Expect(result.Error).To(Equal("Signature invalidated: WorkItem modified"))
		})
	})

	Describe("Non-repudiation", func() {
		It("produces distinct signature hashes for distinct private keys over identical content", func() {
			recA, err := svc.Sign(ctx, "REQ-A", "1.0", snapshot("Auth"), "alice", privPEM)
			Expect(err).NotTo(HaveOccurred())
			recB, err := svc.Sign(ctx, "REQ-B", "1.0", snapshot("Auth"), "bob", otherPriv)
			Expect(err).NotTo(HaveOccurred())

			Expect(recA.ContentHash).To(Equal(recB.ContentHash))
			Expect(recA.SignatureHash).NotTo(Equal(recB.SignatureHash))
		})
	})
})
