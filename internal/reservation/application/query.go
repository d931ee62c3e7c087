package application

import (
	pkgDomain "github.com/mateusmacedo/expresso-van/pkg/domain"
)

const (
	ListTripsQueryName        = "ListTrips"
	GetTripQueryName          = "GetTrip"
	ListUserBookingsQueryName = "ListUserBookings"
	GetUserSummaryQueryName   = "GetUserSummary"
)

type ListTripsData struct{}

type GetTripData struct {
	TripID string
}

type UserBookingsData struct {
	UserID string
}

func NewListTripsQuery() pkgDomain.Query[ListTripsData] {
	return pkgDomain.NewQuery(ListTripsQueryName, ListTripsData{})
}

func NewGetTripQuery(data GetTripData) pkgDomain.Query[GetTripData] {
	return pkgDomain.NewQuery(GetTripQueryName, data)
}

func NewListUserBookingsQuery(data UserBookingsData) pkgDomain.Query[UserBookingsData] {
	return pkgDomain.NewQuery(ListUserBookingsQueryName, data)
}

func NewGetUserSummaryQuery(data UserBookingsData) pkgDomain.Query[UserBookingsData] {
	return pkgDomain.NewQuery(GetUserSummaryQueryName, data)
}
