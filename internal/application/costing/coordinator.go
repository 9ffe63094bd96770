package costing

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/restocost/backend/internal/domain/catalog"
	"github.com/restocost/backend/internal/domain/history"
	"github.com/restocost/backend/internal/domain/margin"
	"github.com/restocost/backend/internal/domain/purchasing"
	"github.com/restocost/backend/internal/domain/recipe"
	"github.com/restocost/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EventState tracks one triggering event through the coordinator.
type EventState string

const (
	EventStateReceived    EventState = "received"
	EventStateValidating  EventState = "validating"
	EventStatePropagating EventState = "propagating"
	EventStateCommitted   EventState = "committed"
	EventStateRejected    EventState = "rejected"
)

// EventOutcome summarizes what one coordinated event did.
type EventOutcome struct {
	State           EventState
	RejectionReason string
	PriceChanges    int
	ChangedRecipes  int
	Suggestions     []catalog.Suggestion
}

// Coordinator drives resolve -> ledger -> ingredient update -> recipe
// propagation -> history -> margin aggregation for one triggering event, with
// all-or-nothing semantics. Every event runs inside the per-establishment lock
// and a single database transaction: a rejected import leaves no catalog,
// ingredient, or recipe mutation behind.
type Coordinator struct {
	scope    TransactionScope
	locker   EstablishmentLocker
	notifier Notifier
	archiver Archiver
	validate *validator.Validate
	logger   *zap.Logger
}

// NewCoordinator creates a new transaction coordinator.
func NewCoordinator(scope TransactionScope, locker EstablishmentLocker, notifier Notifier, archiver Archiver, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		scope:    scope,
		locker:   locker,
		notifier: notifier,
		archiver: archiver,
		validate: validator.New(),
		logger:   logger,
	}
}

// propagationSummary carries the stage results that feed history and margins.
type propagationSummary struct {
	priceChanges   int
	changedRecipes int
}

// runPropagation executes the downstream stages shared by every event type:
// ingredient cost update from price signals, topological recipe recompute,
// history snapshots for everything that changed, then margin aggregation.
func (c *Coordinator) runPropagation(
	ctx context.Context,
	repos TransactionalRepositories,
	establishmentID uuid.UUID,
	effectiveDate time.Time,
	signals []recipe.PriceSignal,
	extraFrontier []uuid.UUID,
	editedIngredients []*recipe.Ingredient,
) (*propagationSummary, error) {
	updater := recipe.NewCostUpdater(repos.IngredientRepo(), c.logger)
	updated, err := updater.Apply(ctx, establishmentID, signals)
	if err != nil {
		return nil, err
	}

	frontier := append(updated.RecipeFrontier, extraFrontier...)

	propagator := recipe.NewPropagator(repos.RecipeRepo(), repos.IngredientRepo(), c.logger)
	propagated, err := propagator.Propagate(ctx, establishmentID, frontier)
	if err != nil {
		return nil, err
	}

	changedIngredients := make([]*recipe.Ingredient, 0, len(editedIngredients)+len(updated.ChangedIngredients)+len(propagated.ChangedIngredients))
	changedIngredients = append(changedIngredients, editedIngredients...)
	changedIngredients = append(changedIngredients, updated.ChangedIngredients...)
	changedIngredients = append(changedIngredients, propagated.ChangedIngredients...)

	versioner := history.NewVersioner(repos.RecipeSnapshotRepo(), repos.IngredientSnapshotRepo(), c.logger)
	if err := versioner.RecordChanges(ctx, effectiveDate, propagated.ChangedRecipes, changedIngredients); err != nil {
		return nil, err
	}

	aggregator := margin.NewAggregator(repos.RecipeRepo(), repos.MarginRepo(), c.logger)
	if err := aggregator.Recompute(ctx, establishmentID, effectiveDate); err != nil {
		return nil, err
	}

	return &propagationSummary{
		priceChanges:   len(signals),
		changedRecipes: len(propagated.ChangedRecipes),
	}, nil
}

// toSignal converts a ledger price change into an ingredient cost signal.
// A cleared price (last source deleted) drives dependent ingredients to zero.
func toSignal(change *purchasing.PriceChange) recipe.PriceSignal {
	signal := recipe.PriceSignal{
		MasterArticleID: change.MasterArticleID,
		OldUnitCost:     change.OldPrice,
	}
	if change.NewPrice != nil {
		signal.NewUnitCost = *change.NewPrice
	} else {
		signal.NewUnitCost = decimal.Zero
	}
	return signal
}

// ProcessImport ingests one normalized OCR payload for a pending import job.
// Validation failures reject the import: a rejection record is written, the
// job moves to its failure state, and no catalog or recipe mutation commits.
func (c *Coordinator) ProcessImport(ctx context.Context, establishmentID, jobID uuid.UUID, payload *ImportPayload) (*EventOutcome, error) {
	release, err := c.locker.Acquire(ctx, establishmentID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := c.startJob(ctx, establishmentID, jobID); err != nil {
		return nil, err
	}

	outcome := &EventOutcome{State: EventStateValidating}

	if err := c.validate.Struct(payload); err != nil {
		return c.rejectImport(ctx, establishmentID, jobID, outcome, shared.NewValidationError("Import payload is malformed: "+err.Error()), true)
	}
	invoiceDate, err := payload.Invoice.ParseDate()
	if err != nil {
		return c.rejectImport(ctx, establishmentID, jobID, outcome, err, false)
	}

	outcome.State = EventStatePropagating
	err = c.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		job, err := repos.ImportJobRepo().FindByIDForEstablishment(ctx, establishmentID, jobID)
		if err != nil {
			return err
		}

		invoice, err := purchasing.NewInvoice(
			establishmentID,
			payload.Supplier.ID,
			payload.Supplier.Name,
			payload.Invoice.Reference,
			invoiceDate,
			payload.Invoice.TotalExclTax,
			payload.Invoice.TotalInclTax,
		)
		if err != nil {
			return err
		}
		invoice.AttachFile(job.FilePath)
		if err := repos.InvoiceRepo().Save(ctx, invoice); err != nil {
			return err
		}

		resolver := catalog.NewResolver(repos.MasterArticleRepo(), repos.NormalizationRuleRepo(), c.logger)
		ledger := purchasing.NewLedger(repos.MasterArticleRepo(), repos.ArticleRepo(), c.logger)

		var signals []recipe.PriceSignal
		for _, line := range payload.Lines {
			resolution, err := resolver.Resolve(ctx, establishmentID, payload.Supplier.ID, catalog.RawLine{Name: line.Name, Unit: line.Unit})
			if err != nil {
				return err
			}
			outcome.Suggestions = append(outcome.Suggestions, resolution.Suggestions...)

			article, err := purchasing.NewArticle(invoice, resolution.Article.ID, line.Name, line.Quantity, line.Unit, line.UnitPrice)
			if err != nil {
				return err
			}
			change, err := ledger.AppendArticle(ctx, resolution.Article, article)
			if err != nil {
				return err
			}
			if change != nil {
				signals = append(signals, toSignal(change))
			}
		}

		summary, err := c.runPropagation(ctx, repos, establishmentID, invoiceDate, signals, nil, nil)
		if err != nil {
			return err
		}
		outcome.PriceChanges = summary.priceChanges
		outcome.ChangedRecipes = summary.changedRecipes

		if err := job.Complete(); err != nil {
			return err
		}
		return repos.ImportJobRepo().Save(ctx, job)
	})
	if err != nil {
		var de *shared.DomainError
		if errors.As(err, &de) {
			return c.rejectImport(ctx, establishmentID, jobID, outcome, de, false)
		}
		return nil, err
	}

	outcome.State = EventStateCommitted
	c.logger.Info("import committed",
		zap.String("establishment_id", establishmentID.String()),
		zap.String("import_job_id", jobID.String()),
		zap.Int("price_changes", outcome.PriceChanges),
		zap.Int("changed_recipes", outcome.ChangedRecipes),
	)
	return outcome, nil
}

// RejectUnparsablePayload handles an import whose stored payload cannot even
// be decoded. The job goes straight to ocr_failed with a rejection record.
func (c *Coordinator) RejectUnparsablePayload(ctx context.Context, establishmentID, jobID uuid.UUID, reason string) (*EventOutcome, error) {
	release, err := c.locker.Acquire(ctx, establishmentID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := c.startJob(ctx, establishmentID, jobID); err != nil {
		return nil, err
	}
	outcome := &EventOutcome{State: EventStateValidating}
	return c.rejectImport(ctx, establishmentID, jobID, outcome, shared.NewValidationError("Import payload is unreadable: "+reason), true)
}

// startJob moves the import job to running and announces it.
func (c *Coordinator) startJob(ctx context.Context, establishmentID, jobID uuid.UUID) error {
	return c.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		job, err := repos.ImportJobRepo().FindByIDForEstablishment(ctx, establishmentID, jobID)
		if err != nil {
			return err
		}
		if err := job.Start(); err != nil {
			return err
		}
		if err := repos.ImportJobRepo().Save(ctx, job); err != nil {
			return err
		}
		c.notifier.Notify(ctx, establishmentID, "Invoice import started: "+job.FilePath)
		return nil
	})
}

// rejectImport records the rejection in its own transaction: the propagation
// transaction already rolled back, so only the rejection row and the terminal
// job status are written.
func (c *Coordinator) rejectImport(ctx context.Context, establishmentID, jobID uuid.UUID, outcome *EventOutcome, cause error, ocrFailure bool) (*EventOutcome, error) {
	err := c.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		job, err := repos.ImportJobRepo().FindByIDForEstablishment(ctx, establishmentID, jobID)
		if err != nil {
			return err
		}

		rejected := purchasing.NewRejectedInvoice(establishmentID, job.ID, job.FilePath, cause.Error())
		if c.archiver != nil {
			url, archiveErr := c.archiver.Archive(ctx, job.FilePath)
			if archiveErr != nil {
				c.logger.Warn("failed to archive rejected invoice file",
					zap.String("file_path", job.FilePath),
					zap.Error(archiveErr),
				)
			} else {
				rejected.SetArchiveURL(url)
			}
		}
		if err := repos.RejectedInvoiceRepo().Save(ctx, rejected); err != nil {
			return err
		}

		if ocrFailure {
			err = job.FailOCR(cause.Error())
		} else {
			err = job.Fail(cause.Error())
		}
		if err != nil {
			return err
		}
		return repos.ImportJobRepo().Save(ctx, job)
	})
	if err != nil {
		return nil, err
	}

	c.notifier.Notify(ctx, establishmentID, "Invoice import rejected: "+cause.Error())
	c.logger.Warn("import rejected",
		zap.String("establishment_id", establishmentID.String()),
		zap.String("import_job_id", jobID.String()),
		zap.String("reason", cause.Error()),
	)

	outcome.State = EventStateRejected
	outcome.RejectionReason = cause.Error()
	return outcome, nil
}

// EditArticle applies a manual price correction to one invoice line and
// propagates the resulting price change.
func (c *Coordinator) EditArticle(ctx context.Context, input *ArticleEditInput) (*EventOutcome, error) {
	if err := c.validate.Struct(input); err != nil {
		return nil, shared.NewValidationError(err.Error())
	}
	release, err := c.locker.Acquire(ctx, input.EstablishmentID)
	if err != nil {
		return nil, err
	}
	defer release()

	outcome := &EventOutcome{State: EventStatePropagating}
	err = c.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		article, err := repos.ArticleRepo().FindByID(ctx, input.ArticleID)
		if err != nil {
			return err
		}
		if article.EstablishmentID != input.EstablishmentID {
			return shared.ErrNotFound
		}
		if err := article.SetUnitPrice(input.UnitPrice); err != nil {
			return err
		}
		if err := repos.ArticleRepo().Save(ctx, article); err != nil {
			return err
		}

		master, err := repos.MasterArticleRepo().FindByIDForEstablishment(ctx, input.EstablishmentID, article.MasterArticleID)
		if err != nil {
			return err
		}
		ledger := purchasing.NewLedger(repos.MasterArticleRepo(), repos.ArticleRepo(), c.logger)
		change, err := ledger.Recalculate(ctx, master)
		if err != nil {
			return err
		}

		var signals []recipe.PriceSignal
		if change != nil {
			signals = append(signals, toSignal(change))
		}
		summary, err := c.runPropagation(ctx, repos, input.EstablishmentID, time.Now(), signals, nil, nil)
		if err != nil {
			return err
		}
		outcome.PriceChanges = summary.priceChanges
		outcome.ChangedRecipes = summary.changedRecipes
		return nil
	})
	if err != nil {
		return nil, err
	}
	outcome.State = EventStateCommitted
	return outcome, nil
}

// DeleteArticle removes one invoice line and recomputes the master article's
// current price from the next-most-recent remaining observation.
func (c *Coordinator) DeleteArticle(ctx context.Context, establishmentID, articleID uuid.UUID) (*EventOutcome, error) {
	release, err := c.locker.Acquire(ctx, establishmentID)
	if err != nil {
		return nil, err
	}
	defer release()

	outcome := &EventOutcome{State: EventStatePropagating}
	err = c.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		article, err := repos.ArticleRepo().FindByID(ctx, articleID)
		if err != nil {
			return err
		}
		if article.EstablishmentID != establishmentID {
			return shared.ErrNotFound
		}
		master, err := repos.MasterArticleRepo().FindByIDForEstablishment(ctx, establishmentID, article.MasterArticleID)
		if err != nil {
			return err
		}

		ledger := purchasing.NewLedger(repos.MasterArticleRepo(), repos.ArticleRepo(), c.logger)
		change, err := ledger.RemoveArticle(ctx, master, article)
		if err != nil {
			return err
		}

		var signals []recipe.PriceSignal
		if change != nil {
			signals = append(signals, toSignal(change))
		}
		summary, err := c.runPropagation(ctx, repos, establishmentID, time.Now(), signals, nil, nil)
		if err != nil {
			return err
		}
		outcome.PriceChanges = summary.priceChanges
		outcome.ChangedRecipes = summary.changedRecipes
		return nil
	})
	if err != nil {
		return nil, err
	}
	outcome.State = EventStateCommitted
	return outcome, nil
}

// DeleteInvoice removes an invoice and all of its lines, reversing their
// ledger effects and cascading the resulting price changes.
func (c *Coordinator) DeleteInvoice(ctx context.Context, establishmentID, invoiceID uuid.UUID) (*EventOutcome, error) {
	release, err := c.locker.Acquire(ctx, establishmentID)
	if err != nil {
		return nil, err
	}
	defer release()

	outcome := &EventOutcome{State: EventStatePropagating}
	err = c.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		invoice, err := repos.InvoiceRepo().FindByIDForEstablishment(ctx, establishmentID, invoiceID)
		if err != nil {
			return err
		}
		articles, err := repos.ArticleRepo().FindByInvoice(ctx, invoice.ID)
		if err != nil {
			return err
		}

		affected := make(map[uuid.UUID]struct{}, len(articles))
		for i := range articles {
			affected[articles[i].MasterArticleID] = struct{}{}
		}
		if err := repos.ArticleRepo().DeleteByInvoice(ctx, invoice.ID); err != nil {
			return err
		}
		if err := repos.InvoiceRepo().Delete(ctx, invoice.ID); err != nil {
			return err
		}

		ledger := purchasing.NewLedger(repos.MasterArticleRepo(), repos.ArticleRepo(), c.logger)
		var signals []recipe.PriceSignal
		for masterID := range affected {
			master, err := repos.MasterArticleRepo().FindByIDForEstablishment(ctx, establishmentID, masterID)
			if err != nil {
				return err
			}
			change, err := ledger.Recalculate(ctx, master)
			if err != nil {
				return err
			}
			if change != nil {
				signals = append(signals, toSignal(change))
			}
		}

		summary, err := c.runPropagation(ctx, repos, establishmentID, time.Now(), signals, nil, nil)
		if err != nil {
			return err
		}
		outcome.PriceChanges = summary.priceChanges
		outcome.ChangedRecipes = summary.changedRecipes
		return nil
	})
	if err != nil {
		return nil, err
	}
	outcome.State = EventStateCommitted
	return outcome, nil
}

// EditIngredient applies a manual edit to one ingredient and propagates
// through its recipe.
func (c *Coordinator) EditIngredient(ctx context.Context, input *IngredientEditInput) (*EventOutcome, error) {
	if err := c.validate.Struct(input); err != nil {
		return nil, shared.NewValidationError(err.Error())
	}
	release, err := c.locker.Acquire(ctx, input.EstablishmentID)
	if err != nil {
		return nil, err
	}
	defer release()

	outcome := &EventOutcome{State: EventStatePropagating}
	err = c.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		ingredient, err := repos.IngredientRepo().FindByID(ctx, input.IngredientID)
		if err != nil {
			return err
		}
		if ingredient.EstablishmentID != input.EstablishmentID {
			return shared.ErrNotFound
		}

		if err := ingredient.SetQuantity(input.Quantity, input.PercentageLoss); err != nil {
			return err
		}
		if input.UnitCost != nil {
			if ingredient.Type != recipe.IngredientTypeFixed {
				return shared.NewValidationError("Only FIXED ingredient costs can be set manually")
			}
			if err := ingredient.ApplyUnitCost(*input.UnitCost); err != nil {
				return err
			}
		}
		if err := repos.IngredientRepo().Save(ctx, ingredient); err != nil {
			return err
		}

		summary, err := c.runPropagation(ctx, repos, input.EstablishmentID, time.Now(), nil,
			[]uuid.UUID{ingredient.RecipeID}, []*recipe.Ingredient{ingredient})
		if err != nil {
			return err
		}
		outcome.ChangedRecipes = summary.changedRecipes
		return nil
	})
	if err != nil {
		return nil, err
	}
	outcome.State = EventStateCommitted
	return outcome, nil
}

// EditRecipe applies a manual price or portion edit and recomputes the recipe
// and everything containing it.
func (c *Coordinator) EditRecipe(ctx context.Context, input *RecipeEditInput) (*EventOutcome, error) {
	if err := c.validate.Struct(input); err != nil {
		return nil, shared.NewValidationError(err.Error())
	}
	release, err := c.locker.Acquire(ctx, input.EstablishmentID)
	if err != nil {
		return nil, err
	}
	defer release()

	outcome := &EventOutcome{State: EventStatePropagating}
	err = c.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		target, err := repos.RecipeRepo().FindByIDForEstablishment(ctx, input.EstablishmentID, input.RecipeID)
		if err != nil {
			return err
		}
		if input.PriceExclTax != nil {
			if err := target.SetPrice(*input.PriceExclTax); err != nil {
				return err
			}
		}
		if input.Portions != nil {
			if err := target.SetPortions(*input.Portions); err != nil {
				return err
			}
		}
		if err := repos.RecipeRepo().Save(ctx, target); err != nil {
			return err
		}

		summary, err := c.runPropagation(ctx, repos, input.EstablishmentID, time.Now(), nil,
			[]uuid.UUID{target.ID}, nil)
		if err != nil {
			return err
		}
		outcome.ChangedRecipes = summary.changedRecipes
		return nil
	})
	if err != nil {
		return nil, err
	}
	outcome.State = EventStateCommitted
	return outcome, nil
}

// DeleteRecipe removes a recipe, writes closing history snapshots, drops
// every SUBRECIPE ingredient referencing it and recomputes the former parents.
func (c *Coordinator) DeleteRecipe(ctx context.Context, establishmentID, recipeID uuid.UUID) (*EventOutcome, error) {
	release, err := c.locker.Acquire(ctx, establishmentID)
	if err != nil {
		return nil, err
	}
	defer release()

	outcome := &EventOutcome{State: EventStatePropagating}
	err = c.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		target, err := repos.RecipeRepo().FindByIDForEstablishment(ctx, establishmentID, recipeID)
		if err != nil {
			return err
		}
		own, err := repos.IngredientRepo().FindByRecipe(ctx, target.ID)
		if err != nil {
			return err
		}

		// SUBRECIPE ingredients elsewhere pointing at the deleted recipe lose
		// their reference and go with it; their recipes form the frontier.
		refs, err := repos.IngredientRepo().FindSubRecipeRefs(ctx, establishmentID)
		if err != nil {
			return err
		}
		var removed []recipe.Ingredient
		frontier := make(map[uuid.UUID]struct{})
		for i := range refs {
			if refs[i].SubRecipeID != nil && *refs[i].SubRecipeID == target.ID {
				removed = append(removed, refs[i])
				frontier[refs[i].RecipeID] = struct{}{}
			}
		}

		versioner := history.NewVersioner(repos.RecipeSnapshotRepo(), repos.IngredientSnapshotRepo(), c.logger)
		closing := make([]recipe.Ingredient, 0, len(own)+len(removed))
		closing = append(closing, own...)
		closing = append(closing, removed...)
		if err := versioner.RecordClosing(ctx, time.Now(), target, closing); err != nil {
			return err
		}

		for i := range removed {
			if err := repos.IngredientRepo().Delete(ctx, removed[i].ID); err != nil {
				return err
			}
		}
		if err := repos.IngredientRepo().DeleteByRecipe(ctx, target.ID); err != nil {
			return err
		}
		if err := repos.RecipeRepo().Delete(ctx, target.ID); err != nil {
			return err
		}

		parents := make([]uuid.UUID, 0, len(frontier))
		for id := range frontier {
			parents = append(parents, id)
		}
		summary, err := c.runPropagation(ctx, repos, establishmentID, time.Now(), nil, parents, nil)
		if err != nil {
			return err
		}
		outcome.ChangedRecipes = summary.changedRecipes
		return nil
	})
	if err != nil {
		return nil, err
	}
	outcome.State = EventStateCommitted
	return outcome, nil
}

// DuplicateRecipe copies a recipe and its ingredients under a new name and
// computes the copy's costs from scratch.
func (c *Coordinator) DuplicateRecipe(ctx context.Context, input *RecipeDuplicateInput) (uuid.UUID, *EventOutcome, error) {
	if err := c.validate.Struct(input); err != nil {
		return uuid.Nil, nil, shared.NewValidationError(err.Error())
	}
	release, err := c.locker.Acquire(ctx, input.EstablishmentID)
	if err != nil {
		return uuid.Nil, nil, err
	}
	defer release()

	var newID uuid.UUID
	outcome := &EventOutcome{State: EventStatePropagating}
	err = c.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		source, err := repos.RecipeRepo().FindByIDForEstablishment(ctx, input.EstablishmentID, input.RecipeID)
		if err != nil {
			return err
		}
		ingredients, err := repos.IngredientRepo().FindByRecipe(ctx, source.ID)
		if err != nil {
			return err
		}

		dup, err := source.Duplicate(input.Name)
		if err != nil {
			return err
		}
		if err := repos.RecipeRepo().Save(ctx, dup); err != nil {
			return err
		}
		clones := make([]*recipe.Ingredient, 0, len(ingredients))
		for i := range ingredients {
			clone := ingredients[i].CloneFor(dup)
			if err := repos.IngredientRepo().Save(ctx, clone); err != nil {
				return err
			}
			clones = append(clones, clone)
		}
		newID = dup.ID

		// Clones keep their source costs, so the propagator will not flag
		// them as changed; pass them explicitly to seed their history.
		summary, err := c.runPropagation(ctx, repos, input.EstablishmentID, time.Now(), nil,
			[]uuid.UUID{dup.ID}, clones)
		if err != nil {
			return err
		}
		outcome.ChangedRecipes = summary.changedRecipes
		return nil
	})
	if err != nil {
		return uuid.Nil, nil, err
	}
	outcome.State = EventStateCommitted
	return newID, outcome, nil
}
