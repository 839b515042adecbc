package precedent

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/clauseguard/internal/contract"
	"github.com/fyrsmithlabs/clauseguard/internal/genai"
	"github.com/fyrsmithlabs/clauseguard/internal/logging"
	"github.com/fyrsmithlabs/clauseguard/internal/vectorindex"
)

// SeedCorpus is the built-in precedent set: a pair of model clauses per
// tracked clause type, one customer-friendly and one supplier-friendly,
// drawn from standard England-and-Wales SaaS terms.
var SeedCorpus = []contract.PrecedentRecord{
	{
		ID:           "liab_saas_customer_friendly_1",
		ClauseType:   string(contract.LabelLimitationOfLiability),
		ContractType: "saas",
		RiskLevel:    "low",
		Jurisdiction: "England and Wales",
		Text: "The Supplier's aggregate liability arising out of or in connection with this Agreement, " +
			"whether in contract, tort (including negligence) or otherwise, shall not exceed an amount " +
			"equal to the Fees paid or payable by the Customer under this Agreement in the twelve (12) " +
			"months immediately preceding the event giving rise to the claim.\n\n" +
			"Nothing in this Agreement excludes or limits either party's liability for death or personal " +
			"injury caused by negligence, fraud or fraudulent misrepresentation, or any other liability " +
			"which cannot lawfully be excluded or limited.",
	},
	{
		ID:           "liab_saas_supplier_friendly_1",
		ClauseType:   string(contract.LabelLimitationOfLiability),
		ContractType: "saas",
		RiskLevel:    "high",
		Jurisdiction: "England and Wales",
		Text: "To the fullest extent permitted by law, the Supplier shall have no liability to the Customer " +
			"arising out of or in connection with this Agreement, whether in contract, tort (including " +
			"negligence) or otherwise.",
	},
	{
		ID:           "govlaw_england_wales_1",
		ClauseType:   string(contract.LabelGoverningLaw),
		ContractType: "saas",
		RiskLevel:    "low",
		Jurisdiction: "England and Wales",
		Text: "This Agreement and any dispute or claim (including non-contractual disputes or claims) " +
			"arising out of or in connection with it or its subject matter or formation shall be " +
			"governed by and construed in accordance with the laws of England and Wales.",
	},
	{
		ID:           "govlaw_newyork_1",
		ClauseType:   string(contract.LabelGoverningLaw),
		ContractType: "saas",
		RiskLevel:    "medium",
		Jurisdiction: "New York",
		Text: "This Agreement shall be governed by and construed in accordance with the laws of the State " +
			"of New York, without regard to its conflict of law provisions.",
	},
	{
		ID:           "termination_30_days_1",
		ClauseType:   string(contract.LabelTermination),
		ContractType: "saas",
		RiskLevel:    "low",
		Jurisdiction: "England and Wales",
		Text: "Either party may terminate this Agreement for convenience by giving the other party not less " +
			"than thirty (30) days' prior written notice.\n\n" +
			"Either party may terminate this Agreement with immediate effect by written notice if the " +
			"other party commits a material breach which is not remedied (if remediable) within thirty " +
			"(30) days after receipt of written notice describing the breach.",
	},
	{
		ID:           "termination_immediate_supplier_1",
		ClauseType:   string(contract.LabelTermination),
		ContractType: "saas",
		RiskLevel:    "high",
		Jurisdiction: "England and Wales",
		Text: "The Supplier may terminate this Agreement at any time, with immediate effect and without " +
			"cause, by giving written notice to the Customer. The Customer shall have no right to any " +
			"refund of Fees paid in advance.",
	},
}

// Seeder embeds precedent records and upserts them into the index.
type Seeder struct {
	embedder genai.Embedder
	index    vectorindex.Index
	logger   *logging.Logger
}

// NewSeeder builds a seeder over the given embedder and index.
func NewSeeder(embedder genai.Embedder, index vectorindex.Index, logger *logging.Logger) *Seeder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Seeder{
		embedder: embedder,
		index:    index,
		logger:   logger.Named("seeder"),
	}
}

// Seed ensures the collection exists and upserts records. Point IDs are
// derived deterministically from the record IDs so re-seeding replaces
// rather than duplicates.
func (s *Seeder) Seed(ctx context.Context, records []contract.PrecedentRecord) error {
	if err := s.index.EnsureCollection(ctx, uint64(s.embedder.Dimension())); err != nil {
		return fmt.Errorf("ensuring collection: %w", err)
	}

	points := make([]*vectorindex.Point, 0, len(records))
	for _, rec := range records {
		vector, err := s.embedder.EmbedText(ctx, rec.Text)
		if err != nil {
			return fmt.Errorf("embedding precedent %s: %w", rec.ID, err)
		}
		points = append(points, &vectorindex.Point{
			ID:     uuid.NewSHA1(uuid.NameSpaceOID, []byte(rec.ID)).String(),
			Vector: vector,
			Payload: map[string]any{
				"precedent_id":  rec.ID,
				"clause_type":   rec.ClauseType,
				"contract_type": rec.ContractType,
				"risk_level":    rec.RiskLevel,
				"jurisdiction":  rec.Jurisdiction,
				"text":          rec.Text,
			},
		})
	}

	if err := s.index.Upsert(ctx, points); err != nil {
		return fmt.Errorf("upserting precedents: %w", err)
	}

	s.logger.Info(ctx, "seeded precedent corpus", zap.Int("count", len(points)))
	return nil
}
