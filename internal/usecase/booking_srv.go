package usecase

import (
	"context"

	"travel-booking/internal/data/entity"
	"travel-booking/internal/data/repository"
	"travel-booking/internal/dto/request"
	"travel-booking/internal/dto/response"
	"travel-booking/pkg/utils"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	maxAmount   = entity.MaxBookingAmount
	minPageSize = 1
	maxPageSize = utils.MaxPageSize
)

type BookingService interface {
	CreateBooking(ctx context.Context, username string, tripID int64, amount int64) (*response.BookingResponse, error)
	GetBooking(ctx context.Context, bookingID int64) (*response.BookingResponse, error)
	GetNextPage(ctx context.Context, username string, req *request.KeysetRequest) (*response.KeysetPage[response.BookingResponse], error)

	// Mutations on an existing booking
	UpdateAmount(ctx context.Context, bookingID int64, newAmount int64) error
	CancelBooking(ctx context.Context, bookingID int64) (bool, error)
}

type bookingService struct {
	txm    repository.TxManager
	repo   *repository.Repository
	ledger *CapacityLedger
	cache  EntityCache
	pub    EventPublisher
	log    *zap.Logger
}

func NewBookingService(txm repository.TxManager, repo *repository.Repository, ledger *CapacityLedger, cache EntityCache, pub EventPublisher, log *zap.Logger) BookingService {
	if pub == nil {
		pub = noopPublisher{}
	}
	return &bookingService{
		txm:    txm,
		repo:   repo,
		ledger: ledger,
		cache:  cache,
		pub:    pub,
		log:    log.With(zap.String("service", "booking")),
	}
}

func checkAmount(amount int64) (int32, error) {
	if amount < entity.MinBookingAmount || amount > entity.MaxBookingAmount {
		return 0, ErrInvalidAmount
	}
	return int32(amount), nil
}

func (s *bookingService) CreateBooking(ctx context.Context, username string, tripID int64, amount int64) (*response.BookingResponse, error) {
	ctx, span := tracer.Start(ctx, "BookingService.CreateBooking", trace.WithAttributes(
		attribute.String("booking.username", username),
		attribute.Int64("trip.id", tripID),
		attribute.Int64("booking.amount", amount),
	))
	defer span.End()

	requested, err := checkAmount(amount)
	if err != nil {
		return nil, recordError(span, err)
	}

	var booking *entity.Booking
	err = s.txm.WithTx(ctx, func(tx *repository.Repository) error {
		// lock order: user, trip, booking
		if _, err := s.cache.GetOrCreateUser(ctx, tx, username, true); err != nil {
			return err
		}

		trip, err := s.cache.GetOrCreateTrip(ctx, tx, tripID, true)
		if err != nil {
			return err
		}
		if trip.Cancelled {
			return ErrTripCancelled.withf("trip %d is cancelled", tripID)
		}

		available, err := s.ledger.AvailableCapacity(ctx, tx, tripID)
		if err != nil {
			return err
		}
		if int64(requested) > available {
			return ErrInsufficientCapacity.withf("not enough capacity on trip %d: requested %d, available %d",
				tripID, requested, max(available, 0))
		}

		booking = &entity.Booking{
			Username: username,
			TripID:   tripID,
			Amount:   requested,
		}
		return tx.Booking.Create(ctx, booking)
	})
	if err != nil {
		return nil, recordError(span, err)
	}

	s.log.Info("Booking created",
		zap.Int64("booking_id", booking.ID),
		zap.String("username", username),
		zap.Int64("trip_id", tripID),
		zap.Int32("amount", requested),
	)

	publishEvent(ctx, s.pub, s.log, EventBookingCreated, BookingEvent{
		BookingID: booking.ID,
		Username:  booking.Username,
		TripID:    booking.TripID,
		Amount:    booking.Amount,
	})

	return response.NewBookingResponse(booking), nil
}

func (s *bookingService) GetBooking(ctx context.Context, bookingID int64) (*response.BookingResponse, error) {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID, false)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, ErrBookingNotFound.withf("booking %d not found", bookingID)
	}

	return response.NewBookingResponse(booking), nil
}

func (s *bookingService) GetNextPage(ctx context.Context, username string, req *request.KeysetRequest) (*response.KeysetPage[response.BookingResponse], error) {
	if req.Amount < minPageSize || req.Amount > maxPageSize {
		return nil, ErrInvalidPageSize
	}

	bookings, err := s.repo.Booking.FindPageByUsername(ctx, username, req.AfterID(), req.Amount)
	if err != nil {
		return nil, err
	}

	list := make([]response.BookingResponse, 0, len(bookings))
	var lastID int64
	for _, b := range bookings {
		list = append(list, *response.NewBookingResponse(b))
		lastID = b.ID
	}

	return response.NewKeysetPage(list, req.Amount, lastID, BookingsPath), nil
}

func (s *bookingService) UpdateAmount(ctx context.Context, bookingID int64, newAmount int64) error {
	ctx, span := tracer.Start(ctx, "BookingService.UpdateAmount", trace.WithAttributes(
		attribute.Int64("booking.id", bookingID),
		attribute.Int64("booking.amount", newAmount),
	))
	defer span.End()

	requested, err := checkAmount(newAmount)
	if err != nil {
		return recordError(span, err)
	}

	// Owner and trip never change, so an unlocked read is enough to learn
	// which rows to lock.
	current, err := s.repo.Booking.FindByID(ctx, bookingID, false)
	if err != nil {
		return recordError(span, err)
	}
	if current == nil {
		return recordError(span, ErrBookingNotFound.withf("booking %d not found", bookingID))
	}

	var updated entity.Booking
	err = s.txm.WithTx(ctx, func(tx *repository.Repository) error {
		if _, err := s.cache.GetOrCreateUser(ctx, tx, current.Username, true); err != nil {
			return err
		}

		trip, err := tx.Trip.FindByID(ctx, current.TripID, true)
		if err != nil {
			return err
		}
		if trip == nil {
			return ErrUnknownTrip.withf("trip %d does not exist", current.TripID)
		}

		booking, err := tx.Booking.FindByID(ctx, bookingID, true)
		if err != nil {
			return err
		}
		if booking == nil {
			return ErrBookingNotFound.withf("booking %d not found", bookingID)
		}
		if booking.Cancelled {
			return ErrBookingCancelled.withf("booking %d is cancelled", bookingID)
		}
		if trip.Cancelled {
			return ErrTripCancelled.withf("trip %d is cancelled", trip.ID)
		}

		available, err := s.ledger.AvailableCapacity(ctx, tx, trip.ID)
		if err != nil {
			return err
		}
		// only the delta has to fit
		if available+int64(booking.Amount)-int64(requested) < 0 {
			return ErrInsufficientCapacity.withf("not enough capacity on trip %d: requested %d, available %d",
				trip.ID, requested, max(available+int64(booking.Amount), 0))
		}

		if err := tx.Booking.UpdateAmount(ctx, bookingID, requested); err != nil {
			return err
		}

		updated = *booking
		updated.Amount = requested
		return nil
	})
	if err != nil {
		return recordError(span, err)
	}

	s.log.Info("Booking amount updated",
		zap.Int64("booking_id", bookingID),
		zap.Int32("from", current.Amount),
		zap.Int32("to", requested),
	)

	publishEvent(ctx, s.pub, s.log, EventBookingAmountUpdated, BookingEvent{
		BookingID: updated.ID,
		Username:  updated.Username,
		TripID:    updated.TripID,
		Amount:    updated.Amount,
	})

	return nil
}

func (s *bookingService) CancelBooking(ctx context.Context, bookingID int64) (bool, error) {
	ctx, span := tracer.Start(ctx, "BookingService.CancelBooking",
		trace.WithAttributes(attribute.Int64("booking.id", bookingID)))
	defer span.End()

	affected, err := s.repo.Booking.Cancel(ctx, bookingID)
	if err != nil {
		return false, recordError(span, err)
	}
	if affected != 1 {
		return false, nil
	}

	s.log.Info("Booking cancelled", zap.Int64("booking_id", bookingID))

	publishEvent(ctx, s.pub, s.log, EventBookingCancelled, BookingEvent{
		BookingID: bookingID,
		Cancelled: true,
		Reason:    "cancelled_by_user",
	})

	return true, nil
}

func recordError(span trace.Span, err error) error {
	if e, ok := AsError(err); ok && e.Kind != KindUnavailable {
		span.SetAttributes(attribute.String("booking.rejected", e.Code))
		return err
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
