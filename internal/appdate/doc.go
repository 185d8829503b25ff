// Package appdate implements the day boundary resolver.
//
// The application day does not start at midnight: an instant whose local hour
// is before ResetHour (06:00) belongs to the previous calendar date. Every
// place that buckets a timestamp into a day (streaks, history grouping,
// recurring completion, shop purchase resets, sale windows, analytics) goes
// through Resolver.Of so that all of them agree.
//
// Date is a civil calendar date in YYYY-MM-DD form. Date arithmetic is done in
// UTC on midnight instants, which makes day differences exact integers
// regardless of daylight saving transitions in the user's location.
package appdate
